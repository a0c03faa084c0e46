package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classroll/backend/internal/model"
	"classroll/backend/internal/repository"
	"classroll/backend/pkg/calendar"
	pkgerrors "classroll/backend/pkg/errors"
)

// Caller 当前请求的调用方，由 Handler 从 JWT Claims 中提取
type Caller struct {
	UserID   string
	Role     string
	CenterID string // 为空表示不限中心（如平台管理员）
}

// canAccess 资源所属中心是否在调用方可见范围内
func (c Caller) canAccess(centerID string) bool {
	return c.CenterID == "" || c.CenterID == centerID
}

// recordedBy 写入考勤时记录的操作人
func (c Caller) recordedBy() *string {
	if c.UserID == "" {
		return nil
	}
	id := c.UserID
	return &id
}

// groupLoader 按中心范围加载班级，各考勤 Service 共用
type groupLoader struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// load 班级不存在或不属于调用方中心时统一返回 NotFound
func (l groupLoader) load(ctx context.Context, groupID string, caller Caller) (*model.Group, error) {
	group, err := l.repo.Group.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("group", groupID, "班级不存在")
		}
		l.logger.Error("查询班级失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}
	if !caller.canAccess(group.CenterID) {
		return nil, pkgerrors.NotFound("group", groupID, "班级不存在")
	}
	return group, nil
}

// enrollmentInScope 报名所属班级是否在调用方中心内
func (l groupLoader) enrollmentInScope(ctx context.Context, e *model.Enrollment, caller Caller) (bool, error) {
	if caller.CenterID == "" {
		return true, nil
	}
	group := e.Group
	if group == nil {
		g, err := l.repo.Group.GetByID(ctx, e.GroupID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			l.logger.Error("查询班级失败", zap.String("group_id", e.GroupID), zap.Error(err))
			return false, err
		}
		group = g
	}
	return caller.canAccess(group.CenterID), nil
}

// scheduleWeekdays 班级课表中的星期（保持存储顺序）
// 未设置课表或星期名称无法识别均属配置错误
func scheduleWeekdays(group *model.Group) ([]time.Weekday, error) {
	if len(group.Schedules) == 0 {
		return nil, pkgerrors.InvalidConfiguration("schedule",
			fmt.Sprintf("班级 %s 未设置课表", group.GroupID))
	}
	weekdays := make([]time.Weekday, 0, len(group.Schedules))
	for _, entry := range group.Schedules {
		wd, err := calendar.ParseWeekday(entry.Weekday)
		if err != nil {
			return nil, err
		}
		weekdays = append(weekdays, wd)
	}
	return weekdays, nil
}

// parseDateRange 解析闭区间 [startDate, endDate]，两端均可缺省
func parseDateRange(startRaw, endRaw string) (start, end *calendar.Date, err error) {
	if startRaw != "" {
		d, err := calendar.ParseDate(startRaw)
		if err != nil {
			return nil, nil, pkgerrors.Validation("startDate", fmt.Sprintf("开始日期格式错误: %q", startRaw))
		}
		start = &d
	}
	if endRaw != "" {
		d, err := calendar.ParseDate(endRaw)
		if err != nil {
			return nil, nil, pkgerrors.Validation("endDate", fmt.Sprintf("结束日期格式错误: %q", endRaw))
		}
		end = &d
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, pkgerrors.Validation("startDate", "开始日期不能晚于结束日期")
	}
	return start, end, nil
}

// attendanceRate 出勤率百分比，四舍五入取整；total 为 0 时返回 0
func attendanceRate(present, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((present*200 + total) / (total * 2))
}
