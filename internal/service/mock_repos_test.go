package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"classroll/backend/internal/model"
	"classroll/backend/internal/repository"
	"classroll/backend/pkg/calendar"
	pkgerrors "classroll/backend/pkg/errors"
)

// mockDB 三个 mock Repository 共享的内存数据
// 存取均按值拷贝，模拟真实存储：调用方修改返回值不会影响已存数据
type mockDB struct {
	groups      map[string]*model.Group
	students    map[string]*model.Student
	enrollments map[string]*model.Enrollment
	records     map[string]*model.AttendanceRecord
	seq         int
}

func newMockDB() *mockDB {
	return &mockDB{
		groups:      make(map[string]*model.Group),
		students:    make(map[string]*model.Student),
		enrollments: make(map[string]*model.Enrollment),
		records:     make(map[string]*model.AttendanceRecord),
	}
}

// addGroup 添加班级，weekdays 为课表星期（存储顺序）
func (db *mockDB) addGroup(id, centerID, name string, weekdays ...string) *model.Group {
	g := &model.Group{GroupID: id, CenterID: centerID, Name: name, IsActive: true}
	for i, wd := range weekdays {
		g.Schedules = append(g.Schedules, model.GroupSchedule{
			ScheduleID: fmt.Sprintf("%s-sch-%d", id, i),
			GroupID:    id,
			Weekday:    wd,
			StartTime:  "18:00:00",
			EndTime:    "19:30:00",
			SortOrder:  i,
		})
	}
	db.groups[id] = g
	return g
}

// enroll 添加学生并报名到班级，返回报名 ID
func (db *mockDB) enroll(groupID, studentID, name string) string {
	if _, ok := db.students[studentID]; !ok {
		db.students[studentID] = &model.Student{
			StudentID: studentID, CenterID: db.groups[groupID].CenterID, Name: name, IsActive: true,
		}
	}
	id := "enr-" + groupID + "-" + studentID
	db.enrollments[id] = &model.Enrollment{EnrollmentID: id, StudentID: studentID, GroupID: groupID, IsActive: true}
	return id
}

func (db *mockDB) countRecords(enrollmentID string, date calendar.Date) int {
	n := 0
	for _, r := range db.records {
		if r.EnrollmentID == enrollmentID && r.Date == date {
			n++
		}
	}
	return n
}

func (db *mockDB) withRelations(e model.Enrollment) *model.Enrollment {
	if s, ok := db.students[e.StudentID]; ok {
		cp := *s
		e.Student = &cp
	}
	if g, ok := db.groups[e.GroupID]; ok {
		cp := *g
		e.Group = &cp
	}
	return &e
}

// newMockRepository 组装 repository.Repository
func newMockRepository(db *mockDB) (*repository.Repository, *mockAttendanceRepo) {
	attendance := &mockAttendanceRepo{db: db}
	return &repository.Repository{
		Group:      &mockGroupRepo{db: db},
		Enrollment: &mockEnrollmentRepo{db: db},
		Attendance: attendance,
	}, attendance
}

// ── Mock GroupRepository ──

type mockGroupRepo struct {
	db  *mockDB
	err error
}

func (m *mockGroupRepo) GetByID(_ context.Context, id string) (*model.Group, error) {
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.db.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *g
	cp.Schedules = append([]model.GroupSchedule(nil), g.Schedules...)
	return &cp, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	db *mockDB
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id string) (*model.Enrollment, error) {
	e, ok := m.db.enrollments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.db.withRelations(*e), nil
}

func (m *mockEnrollmentRepo) ListActiveByGroup(_ context.Context, groupID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.db.enrollments {
		if e.GroupID != groupID || !e.IsActive {
			continue
		}
		if s, ok := m.db.students[e.StudentID]; !ok || !s.IsActive {
			continue
		}
		result = append(result, *m.db.withRelations(*e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Student.Name < result[j].Student.Name })
	return result, nil
}

func (m *mockEnrollmentRepo) FindByGroupAndStudent(_ context.Context, groupID, studentID string) (*model.Enrollment, error) {
	for _, e := range m.db.enrollments {
		if e.GroupID != groupID || e.StudentID != studentID || !e.IsActive {
			continue
		}
		if s, ok := m.db.students[e.StudentID]; !ok || !s.IsActive {
			continue
		}
		return m.db.withRelations(*e), nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	db *mockDB

	// beforeCreate 在唯一性检查前调用，用于模拟并发写者抢先插入
	beforeCreate func(record *model.AttendanceRecord)
	createCalls  int
	updateCalls  int
	createErr    error
	listErr      error
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if m.beforeCreate != nil {
		m.beforeCreate(record)
	}
	if m.db.countRecords(record.EnrollmentID, record.Date) > 0 {
		return pkgerrors.ErrDuplicate
	}
	m.db.seq++
	if record.RecordID == "" {
		record.RecordID = fmt.Sprintf("rec-%d", m.db.seq)
	}
	now := time.Date(2026, 10, 15, 10, 0, m.db.seq, 0, time.UTC)
	record.CreatedAt = now
	record.UpdatedAt = now
	cp := *record
	cp.Enrollment = nil
	m.db.records[record.RecordID] = &cp
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	r, ok := m.db.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	if e, ok := m.db.enrollments[r.EnrollmentID]; ok {
		cp.Enrollment = m.db.withRelations(*e)
	}
	return &cp, nil
}

func (m *mockAttendanceRepo) FindByEnrollmentAndDate(_ context.Context, enrollmentID string, date calendar.Date) (*model.AttendanceRecord, error) {
	for _, r := range m.db.records {
		if r.EnrollmentID == enrollmentID && r.Date == date {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) Update(_ context.Context, record *model.AttendanceRecord) error {
	m.updateCalls++
	stored, ok := m.db.records[record.RecordID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = record.Status
	stored.Note = record.Note
	stored.RecordedBy = record.RecordedBy
	stored.UpdatedAt = stored.UpdatedAt.Add(time.Minute)
	record.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *mockAttendanceRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.db.records[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.db.records, id)
	return nil
}

func (m *mockAttendanceRepo) ListByEnrollmentsInRange(_ context.Context, enrollmentIDs []string, start, end calendar.Date) ([]model.AttendanceRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	wanted := make(map[string]bool, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		wanted[id] = true
	}
	var result []model.AttendanceRecord
	for _, r := range m.db.records {
		if wanted[r.EnrollmentID] && !r.Date.Before(start) && r.Date.Before(end) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockAttendanceRepo) ListByGroupAndDate(_ context.Context, groupID string, date calendar.Date) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.db.records {
		e, ok := m.db.enrollments[r.EnrollmentID]
		if !ok || e.GroupID != groupID || r.Date != date {
			continue
		}
		cp := *r
		cp.Enrollment = m.db.withRelations(*e)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RecordID < result[j].RecordID })
	return result, nil
}

func (m *mockAttendanceRepo) CountByStatus(_ context.Context, groupID string, start, end *calendar.Date) ([]model.StatusCount, error) {
	totals := make(map[model.AttendanceStatus]int64)
	for _, r := range m.db.records {
		e, ok := m.db.enrollments[r.EnrollmentID]
		if !ok || e.GroupID != groupID {
			continue
		}
		if start != nil && r.Date.Before(*start) {
			continue
		}
		if end != nil && r.Date.After(*end) {
			continue
		}
		totals[r.Status]++
	}
	var result []model.StatusCount
	for status, n := range totals {
		result = append(result, model.StatusCount{Status: status, Count: n})
	}
	return result, nil
}

// ── Mock SubmissionLocker ──

type mockLocker struct {
	held      map[string]string
	err       error
	seq       int
	unlocks   int
	contended int

	// onContended 在锁被占用时调用，用于模拟持有者完成提交
	onContended func(key string)
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]string)}
}

func (m *mockLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	if _, ok := m.held[key]; ok {
		m.contended++
		if m.onContended != nil {
			m.onContended(key)
		}
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("tok-%d", m.seq)
	m.held[key] = token
	return token, true, nil
}

func (m *mockLocker) Unlock(_ context.Context, key, token string) error {
	m.unlocks++
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}
