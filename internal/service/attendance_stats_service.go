package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"classroll/backend/internal/dto"
	"classroll/backend/internal/model"
	"classroll/backend/internal/repository"
)

// AttendanceStatsService 考勤统计业务接口
type AttendanceStatsService interface {
	// Stats 按状态统计班级考勤，日期范围为闭区间且两端均可缺省
	Stats(ctx context.Context, groupID string, req *dto.AttendanceRangeRequest, caller Caller) (*dto.AttendanceStatsResponse, error)
}

type attendanceStatsService struct {
	repo   *repository.Repository
	groups groupLoader
	logger *zap.Logger
}

// NewAttendanceStatsService 创建 AttendanceStatsService 实例
func NewAttendanceStatsService(repo *repository.Repository, logger *zap.Logger) AttendanceStatsService {
	return &attendanceStatsService{
		repo:   repo,
		groups: groupLoader{repo: repo, logger: logger},
		logger: logger,
	}
}

func (s *attendanceStatsService) Stats(ctx context.Context, groupID string, req *dto.AttendanceRangeRequest, caller Caller) (*dto.AttendanceStatsResponse, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.load(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.Attendance.CountByStatus(ctx, group.GroupID, start, end)
	if err != nil {
		s.logger.Error("统计考勤失败", zap.String("group_id", group.GroupID), zap.Error(err))
		return nil, err
	}

	resp := &dto.AttendanceStatsResponse{GroupID: group.GroupID}
	if start != nil {
		key := start.Key()
		resp.StartDate = &key
	}
	if end != nil {
		key := end.Key()
		resp.EndDate = &key
	}
	if err := tallyStatusCounts(counts, &resp.Present, &resp.Absent, &resp.Late); err != nil {
		s.logger.Error("考勤状态数据异常", zap.String("group_id", group.GroupID), zap.Error(err))
		return nil, err
	}
	resp.Total = resp.Present + resp.Absent + resp.Late
	resp.AttendanceRate = attendanceRate(resp.Present, resp.Total)
	return resp, nil
}

// tallyStatusCounts 把分组计数累加到各状态；出现未知状态说明存储层约束被绕过
func tallyStatusCounts(counts []model.StatusCount, present, absent, late *int64) error {
	for _, c := range counts {
		switch c.Status {
		case model.AttendanceStatusPresent:
			*present += c.Count
		case model.AttendanceStatusAbsent:
			*absent += c.Count
		case model.AttendanceStatusLate:
			*late += c.Count
		default:
			return fmt.Errorf("未知的考勤状态 %q", c.Status)
		}
	}
	return nil
}
