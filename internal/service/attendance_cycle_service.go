package service

import (
	"context"

	"go.uber.org/zap"

	"classroll/backend/internal/dto"
	"classroll/backend/internal/model"
	"classroll/backend/internal/repository"
	"classroll/backend/pkg/calendar"
)

// AttendanceCycleService 本周期考勤视图
type AttendanceCycleService interface {
	// CurrentCycleView 名册中每个有效学生在本周期内的预填状态
	CurrentCycleView(ctx context.Context, groupID string, caller Caller) (*dto.WeekCycleAttendanceResponse, error)
	// ClassToday 今天是否为班级上课日
	ClassToday(ctx context.Context, groupID string, caller Caller) (*dto.ClassTodayResponse, error)
}

type attendanceCycleService struct {
	repo     *repository.Repository
	groups   groupLoader
	resolver *ClassDayResolver
	clock    calendar.Clock
	logger   *zap.Logger
}

// NewAttendanceCycleService 创建 AttendanceCycleService 实例
func NewAttendanceCycleService(
	repo *repository.Repository,
	resolver *ClassDayResolver,
	clock calendar.Clock,
	logger *zap.Logger,
) AttendanceCycleService {
	return &attendanceCycleService{
		repo:     repo,
		groups:   groupLoader{repo: repo, logger: logger},
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

// ═══════════════════════════════════════════════════════════
// CurrentCycleView
// ═══════════════════════════════════════════════════════════
//
// 流程：
//   1. 加载班级课表与有效名册
//   2. 判定上课日、选出锚定星期，计算周期 [weekStart, weekEnd)
//   3. 查询名册在周期内的全部考勤
//   4. 每个学生取周期内最近一条记录作为预填状态

func (s *attendanceCycleService) CurrentCycleView(ctx context.Context, groupID string, caller Caller) (*dto.WeekCycleAttendanceResponse, error) {
	group, err := s.groups.load(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}
	weekdays, err := scheduleWeekdays(group)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	resolution, err := s.resolver.Resolve(weekdays, today)
	if err != nil {
		return nil, err
	}
	cycle, err := calendar.CurrentWeekCycle(resolution.AnchorWeekday, today)
	if err != nil {
		return nil, err
	}
	// 上课日：锚定星期即今天，周期起点就是今天；否则为锚定星期的最近一次
	attendanceDate := cycle.StartDate

	roster, err := s.repo.Enrollment.ListActiveByGroup(ctx, group.GroupID)
	if err != nil {
		s.logger.Error("查询班级名册失败", zap.String("group_id", group.GroupID), zap.Error(err))
		return nil, err
	}
	enrollmentIDs := make([]string, 0, len(roster))
	for _, e := range roster {
		enrollmentIDs = append(enrollmentIDs, e.EnrollmentID)
	}

	records, err := s.repo.Attendance.ListByEnrollmentsInRange(ctx, enrollmentIDs, cycle.StartDate, cycle.EndDate)
	if err != nil {
		s.logger.Error("查询周期考勤失败",
			zap.String("group_id", group.GroupID),
			zap.String("week_start", cycle.StartDate.Key()),
			zap.Error(err),
		)
		return nil, err
	}

	latest := make(map[string]*model.AttendanceRecord, len(records))
	recordedToday := make(map[string]bool)
	attendanceExists := false
	for i := range records {
		r := &records[i]
		if prev, ok := latest[r.EnrollmentID]; !ok || r.Date.After(prev.Date) {
			latest[r.EnrollmentID] = r
		}
		if r.Date == attendanceDate {
			attendanceExists = true
		}
		if r.Date == today {
			recordedToday[r.EnrollmentID] = true
		}
	}

	students := make([]dto.GroupAttendanceStatus, 0, len(roster))
	for _, e := range roster {
		item := dto.GroupAttendanceStatus{
			EnrollmentID:       e.EnrollmentID,
			StudentID:          e.StudentID,
			HasAttendanceToday: resolution.IsClassToday && recordedToday[e.EnrollmentID],
		}
		if e.Student != nil {
			item.StudentName = e.Student.Name
		}
		if r, ok := latest[e.EnrollmentID]; ok {
			status := string(r.Status)
			date := r.Date.Key()
			item.CurrentWeekStatus = &status
			item.LastAttendanceDate = &date
			item.Note = r.Note
		}
		students = append(students, item)
	}

	return &dto.WeekCycleAttendanceResponse{
		GroupID:          group.GroupID,
		GroupName:        group.Name,
		Today:            today.Key(),
		TodayWeekday:     calendar.WeekdayName(today.Weekday()),
		IsClassToday:     resolution.IsClassToday,
		ClassDays:        resolution.ClassDayNames(),
		AnchorWeekday:    calendar.WeekdayName(resolution.AnchorWeekday),
		WeekStart:        cycle.StartDate.Key(),
		WeekEnd:          cycle.EndDate.Key(),
		AttendanceExists: attendanceExists,
		AttendanceDate:   attendanceDate.Key(),
		Students:         students,
	}, nil
}

// ────────────────────── ClassToday ──────────────────────

func (s *attendanceCycleService) ClassToday(ctx context.Context, groupID string, caller Caller) (*dto.ClassTodayResponse, error) {
	group, err := s.groups.load(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}
	weekdays, err := scheduleWeekdays(group)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	resolution, err := s.resolver.Resolve(weekdays, today)
	if err != nil {
		return nil, err
	}
	return &dto.ClassTodayResponse{
		IsClassToday: resolution.IsClassToday,
		ClassDays:    resolution.ClassDayNames(),
		Today:        calendar.WeekdayName(today.Weekday()),
		Date:         today.Key(),
	}, nil
}
