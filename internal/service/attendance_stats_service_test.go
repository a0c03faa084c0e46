package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"classroll/backend/internal/dto"
	"classroll/backend/internal/model"
	pkgerrors "classroll/backend/pkg/errors"
)

func setupTestStatsService() (AttendanceStatsService, AttendanceService, *mockDB) {
	db := newMockDB()
	db.addGroup("grp-1", "center-1", "周二编程班", "Tuesday")
	db.enroll("grp-1", "stu-1", "张三")
	db.enroll("grp-1", "stu-2", "李四")
	db.enroll("grp-1", "stu-3", "王五")

	repo, _ := newMockRepository(db)
	stats := NewAttendanceStatsService(repo, zap.NewNop())
	recorder := NewAttendanceService(testAttendanceConfig(), repo, nil, zap.NewNop())
	return stats, recorder, db
}

func TestStatsService_TuesdayScenario(t *testing.T) {
	stats, recorder, _ := setupTestStatsService()
	_, err := recorder.RecordBulk(context.Background(), &dto.BulkAttendanceRequest{
		GroupID: "grp-1",
		Date:    "2026-10-13",
		AttendanceRecords: []dto.BulkAttendanceItem{
			{StudentID: "stu-1", Status: "present"},
			{StudentID: "stu-2", Status: "present"},
			{StudentID: "stu-3", Status: "absent"},
		},
	}, teacher)
	if err != nil {
		t.Fatalf("RecordBulk 失败: %v", err)
	}

	resp, err := stats.Stats(context.Background(), "grp-1", &dto.AttendanceRangeRequest{}, teacher)
	if err != nil {
		t.Fatalf("Stats 失败: %v", err)
	}
	if resp.Present != 2 || resp.Absent != 1 || resp.Late != 0 || resp.Total != 3 || resp.AttendanceRate != 67 {
		t.Errorf("期望 {2 1 0 3 67}，实际 %+v", resp)
	}
}

func TestStatsService_ZeroRecords(t *testing.T) {
	stats, _, _ := setupTestStatsService()

	resp, err := stats.Stats(context.Background(), "grp-1", &dto.AttendanceRangeRequest{}, teacher)
	if err != nil {
		t.Fatalf("Stats 失败: %v", err)
	}
	if resp.Present != 0 || resp.Absent != 0 || resp.Late != 0 || resp.Total != 0 || resp.AttendanceRate != 0 {
		t.Errorf("无记录时应全部为 0，实际 %+v", resp)
	}
}

func TestStatsService_InclusiveRange(t *testing.T) {
	stats, recorder, _ := setupTestStatsService()
	for _, d := range []string{"2026-10-06", "2026-10-13", "2026-10-20"} {
		_, _ = recorder.RecordBulk(context.Background(), &dto.BulkAttendanceRequest{
			GroupID: "grp-1", Date: d,
			AttendanceRecords: []dto.BulkAttendanceItem{{StudentID: "stu-1", Status: "late"}},
		}, teacher)
	}

	resp, err := stats.Stats(context.Background(), "grp-1", &dto.AttendanceRangeRequest{
		StartDate: "2026-10-13", EndDate: "2026-10-20",
	}, teacher)
	if err != nil {
		t.Fatalf("Stats 失败: %v", err)
	}
	if resp.Late != 2 || resp.Total != 2 {
		t.Errorf("闭区间应包含两端，实际 %+v", resp)
	}
	if resp.StartDate == nil || *resp.StartDate != "2026-10-13" {
		t.Errorf("响应应回显 startDate")
	}

	resp, _ = stats.Stats(context.Background(), "grp-1", &dto.AttendanceRangeRequest{EndDate: "2026-10-06"}, teacher)
	if resp.Total != 1 {
		t.Errorf("仅指定 endDate 时期望 1 条，实际 %d", resp.Total)
	}
}

func TestStatsService_Errors(t *testing.T) {
	stats, _, _ := setupTestStatsService()

	_, err := stats.Stats(context.Background(), "grp-1", &dto.AttendanceRangeRequest{
		StartDate: "2026-10-20", EndDate: "2026-10-13",
	}, teacher)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("开始晚于结束期望 ErrValidation，实际: %v", err)
	}

	_, err = stats.Stats(context.Background(), "grp-1", &dto.AttendanceRangeRequest{StartDate: "13/10/2026"}, teacher)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("非法日期期望 ErrValidation，实际: %v", err)
	}

	_, err = stats.Stats(context.Background(), "grp-1", &dto.AttendanceRangeRequest{}, outsider)
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("跨中心期望 ErrNotFound，实际: %v", err)
	}
}

func TestAttendanceRate_RoundsHalfUp(t *testing.T) {
	cases := []struct {
		present, total int64
		want           int
	}{
		{0, 0, 0},
		{2, 3, 67},
		{1, 3, 33},
		{1, 8, 13},  // 12.5
		{1, 200, 1}, // 0.5
		{3, 3, 100},
	}
	for _, tc := range cases {
		if got := attendanceRate(tc.present, tc.total); got != tc.want {
			t.Errorf("attendanceRate(%d, %d)=%d，期望 %d", tc.present, tc.total, got, tc.want)
		}
	}
}

func TestTallyStatusCounts_RejectsUnknownStatus(t *testing.T) {
	var p, a, l int64
	err := tallyStatusCounts([]model.StatusCount{
		{Status: model.AttendanceStatusPresent, Count: 2},
		{Status: "excused", Count: 1},
	}, &p, &a, &l)
	if err == nil {
		t.Error("未知状态应报错")
	}
}
