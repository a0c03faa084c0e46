//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"classroll/backend/internal/model"
	"classroll/backend/internal/repository"
	"classroll/backend/pkg/calendar"
	"classroll/backend/pkg/database"
	pkgerrors "classroll/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=classroll password=classroll_password dbname=classroll_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用与生产相同的迁移脚本建表
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type fixture struct {
	center  string
	group   *model.Group
	alice   *model.Enrollment
	bob     *model.Enrollment
	dropped *model.Enrollment
}

// setupFixture 创建一个周二上课的班级与三名报名学生（其中一名已退课），返回清理函数
func setupFixture(t *testing.T) (*fixture, func()) {
	t.Helper()
	ctx := context.Background()
	db := testDB.WithContext(ctx)

	var center string
	if err := db.Raw("SELECT gen_random_uuid()::text").Scan(&center).Error; err != nil {
		t.Fatalf("生成中心 ID 失败: %v", err)
	}

	group := &model.Group{CenterID: center, Name: "集成测试班", IsActive: true}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("创建班级失败: %v", err)
	}
	schedule := &model.GroupSchedule{GroupID: group.GroupID, Weekday: "Tuesday", StartTime: "17:00:00", EndTime: "18:30:00"}
	if err := db.Create(schedule).Error; err != nil {
		t.Fatalf("创建课表失败: %v", err)
	}

	enroll := func(name string, active bool) *model.Enrollment {
		student := &model.Student{CenterID: center, Name: name, IsActive: true}
		if err := db.Create(student).Error; err != nil {
			t.Fatalf("创建学生失败: %v", err)
		}
		e := &model.Enrollment{StudentID: student.StudentID, GroupID: group.GroupID, IsActive: true}
		if err := db.Create(e).Error; err != nil {
			t.Fatalf("创建报名失败: %v", err)
		}
		if !active {
			// gorm 不会写入零值 false，单独更新
			if err := db.Model(e).Update("is_active", false).Error; err != nil {
				t.Fatalf("停用报名失败: %v", err)
			}
		}
		return e
	}

	fx := &fixture{
		center:  center,
		group:   group,
		alice:   enroll("Alice", true),
		bob:     enroll("Bob", true),
		dropped: enroll("Carol", false),
	}

	cleanup := func() {
		ids := []string{fx.alice.EnrollmentID, fx.bob.EnrollmentID, fx.dropped.EnrollmentID}
		testDB.Where("enrollment_id IN ?", ids).Delete(&model.AttendanceRecord{})
		testDB.Where("group_id = ?", group.GroupID).Delete(&model.Enrollment{})
		testDB.Where("center_id = ?", center).Delete(&model.Student{})
		testDB.Where("group_id = ?", group.GroupID).Delete(&model.GroupSchedule{})
		testDB.Where("group_id = ?", group.GroupID).Delete(&model.Group{})
	}
	return fx, cleanup
}

func newRecord(enrollmentID, date string, status model.AttendanceStatus) *model.AttendanceRecord {
	return &model.AttendanceRecord{
		EnrollmentID: enrollmentID,
		Date:         calendar.MustParseDate(date),
		Status:       status,
	}
}

// ═══════════════════════════════════════════════════════════
// Tests
// ═══════════════════════════════════════════════════════════

func TestGroupRepo_GetByID_PreloadsSchedules(t *testing.T) {
	fx, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)

	group, err := repo.Group.GetByID(context.Background(), fx.group.GroupID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(group.Schedules) != 1 || group.Schedules[0].Weekday != "Tuesday" {
		t.Errorf("课表未预加载: %+v", group.Schedules)
	}
}

func TestEnrollmentRepo_ListActiveByGroup(t *testing.T) {
	fx, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)

	list, err := repo.Enrollment.ListActiveByGroup(context.Background(), fx.group.GroupID)
	if err != nil {
		t.Fatalf("ListActiveByGroup 失败: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 名有效学生，实际 %d", len(list))
	}
	if list[0].Student == nil || list[0].Student.Name != "Alice" {
		t.Errorf("应按姓名排序并预加载学生: %+v", list[0])
	}

	_, err = repo.Enrollment.FindByGroupAndStudent(context.Background(), fx.group.GroupID, fx.dropped.StudentID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("已退课学生期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestEnrollmentRepo_FindByGroupAndStudent(t *testing.T) {
	fx, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	got, err := repo.Enrollment.FindByGroupAndStudent(ctx, fx.group.GroupID, fx.alice.StudentID)
	if err != nil {
		t.Fatalf("FindByGroupAndStudent 失败: %v", err)
	}
	if got.EnrollmentID != fx.alice.EnrollmentID || got.Student == nil {
		t.Errorf("应返回 Alice 的报名并预加载学生: %+v", got)
	}

	// 报名有效但学生已停用
	if err := testDB.Model(&model.Student{}).Where("student_id = ?", fx.bob.StudentID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("停用学生失败: %v", err)
	}
	_, err = repo.Enrollment.FindByGroupAndStudent(ctx, fx.group.GroupID, fx.bob.StudentID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("停用学生期望 ErrRecordNotFound，实际: %v", err)
	}

	// 非 UUID 不应触发 22P02
	_, err = repo.Enrollment.FindByGroupAndStudent(ctx, fx.group.GroupID, "not-a-uuid")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("非法学生 ID 期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestAttendanceRepo_Create_UniqueViolation(t *testing.T) {
	fx, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if err := repo.Attendance.Create(ctx, newRecord(fx.alice.EnrollmentID, "2026-10-13", model.AttendanceStatusPresent)); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	err := repo.Attendance.Create(ctx, newRecord(fx.alice.EnrollmentID, "2026-10-13", model.AttendanceStatusAbsent))
	if !errors.Is(err, pkgerrors.ErrDuplicate) {
		t.Fatalf("重复 (报名, 日期) 期望 ErrDuplicate，实际: %v", err)
	}

	got, err := repo.Attendance.FindByEnrollmentAndDate(ctx, fx.alice.EnrollmentID, calendar.MustParseDate("2026-10-13"))
	if err != nil {
		t.Fatalf("FindByEnrollmentAndDate 失败: %v", err)
	}
	if got.Status != model.AttendanceStatusPresent {
		t.Errorf("冲突写入不应覆盖原记录，实际 %s", got.Status)
	}
}

func TestAttendanceRepo_UpdateAndDelete(t *testing.T) {
	fx, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	rec := newRecord(fx.bob.EnrollmentID, "2026-10-13", model.AttendanceStatusAbsent)
	if err := repo.Attendance.Create(ctx, rec); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	rec.Status = model.AttendanceStatusLate
	if err := repo.Attendance.Update(ctx, rec); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	got, _ := repo.Attendance.GetByID(ctx, rec.RecordID)
	if got.Status != model.AttendanceStatusLate {
		t.Errorf("期望 late，实际 %s", got.Status)
	}

	if err := repo.Attendance.Delete(ctx, rec.RecordID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if err := repo.Attendance.Update(ctx, rec); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("更新已删除记录期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestAttendanceRepo_RangeQueries(t *testing.T) {
	fx, cleanup := setupFixture(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	seed := []*model.AttendanceRecord{
		newRecord(fx.alice.EnrollmentID, "2026-10-06", model.AttendanceStatusPresent),
		newRecord(fx.alice.EnrollmentID, "2026-10-13", model.AttendanceStatusPresent),
		newRecord(fx.bob.EnrollmentID, "2026-10-13", model.AttendanceStatusAbsent),
		newRecord(fx.bob.EnrollmentID, "2026-10-20", model.AttendanceStatusLate),
	}
	for _, r := range seed {
		if err := repo.Attendance.Create(ctx, r); err != nil {
			t.Fatalf("创建失败: %v", err)
		}
	}

	// [start, end) 半开区间
	inCycle, err := repo.Attendance.ListByEnrollmentsInRange(ctx,
		[]string{fx.alice.EnrollmentID, fx.bob.EnrollmentID},
		calendar.MustParseDate("2026-10-13"), calendar.MustParseDate("2026-10-20"))
	if err != nil {
		t.Fatalf("ListByEnrollmentsInRange 失败: %v", err)
	}
	if len(inCycle) != 2 {
		t.Errorf("周期内期望 2 条，实际 %d", len(inCycle))
	}

	onDay, err := repo.Attendance.ListByGroupAndDate(ctx, fx.group.GroupID, calendar.MustParseDate("2026-10-13"))
	if err != nil {
		t.Fatalf("ListByGroupAndDate 失败: %v", err)
	}
	if len(onDay) != 2 || onDay[0].Enrollment == nil || onDay[0].Enrollment.Student == nil {
		t.Errorf("应返回 2 条并预加载学生: %+v", onDay)
	}

	// 闭区间，两端可缺省
	start := calendar.MustParseDate("2026-10-13")
	end := calendar.MustParseDate("2026-10-20")
	counts, err := repo.Attendance.CountByStatus(ctx, fx.group.GroupID, &start, &end)
	if err != nil {
		t.Fatalf("CountByStatus 失败: %v", err)
	}
	got := map[model.AttendanceStatus]int64{}
	for _, c := range counts {
		got[c.Status] = c.Count
	}
	if got[model.AttendanceStatusPresent] != 1 || got[model.AttendanceStatusAbsent] != 1 || got[model.AttendanceStatusLate] != 1 {
		t.Errorf("闭区间统计错误: %v", got)
	}

	all, _ := repo.Attendance.CountByStatus(ctx, fx.group.GroupID, nil, nil)
	var total int64
	for _, c := range all {
		total += c.Count
	}
	if total != 4 {
		t.Errorf("不限范围期望 4 条，实际 %d", total)
	}
}
