package service

import (
	"go.uber.org/zap"

	"classroll/backend/config"
	"classroll/backend/internal/repository"
	"classroll/backend/pkg/calendar"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Attendance AttendanceService
	Cycle      AttendanceCycleService
	Stats      AttendanceStatsService
	Export     ExportService
}

// NewService 创建 Service 聚合
// locker 可为 nil（Redis 不可用时批量提交不加锁）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker SubmissionLocker,
	clock calendar.Clock,
	logger *zap.Logger,
) (*Service, error) {
	resolver, err := NewClassDayResolver(cfg.Attendance.AnchorPolicy)
	if err != nil {
		return nil, err
	}
	return &Service{
		Attendance: NewAttendanceService(&cfg.Attendance, repo, locker, logger),
		Cycle:      NewAttendanceCycleService(repo, resolver, clock, logger),
		Stats:      NewAttendanceStatsService(repo, logger),
		Export:     NewExportService(repo, logger),
	}, nil
}
