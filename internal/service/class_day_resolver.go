package service

import (
	"fmt"
	"time"

	"classroll/backend/config"
	"classroll/backend/pkg/calendar"
	pkgerrors "classroll/backend/pkg/errors"
)

// ClassDayResolution 上课日判定结果
type ClassDayResolution struct {
	IsClassToday  bool
	AnchorWeekday time.Weekday   // 本周期锚定星期
	ClassDays     []time.Weekday // 去重后的排课星期，保持存储顺序
}

// ClassDayNames 排课星期名称列表
func (r ClassDayResolution) ClassDayNames() []string {
	names := make([]string, 0, len(r.ClassDays))
	for _, wd := range r.ClassDays {
		names = append(names, calendar.WeekdayName(wd))
	}
	return names
}

// ClassDayResolver 判断今天是否上课，并选出本周期的锚定星期
//
// 今天在课表中：锚定星期即今天。
// 今天不在课表中：按策略选择
//   - first_scheduled: 课表存储顺序中的第一个星期
//   - nearest_past:    向前回溯距离今天最近的排课星期
type ClassDayResolver struct {
	policy string
}

// NewClassDayResolver 创建 ClassDayResolver，policy 为空时使用 first_scheduled
func NewClassDayResolver(policy string) (*ClassDayResolver, error) {
	switch policy {
	case "":
		policy = config.AnchorPolicyFirstScheduled
	case config.AnchorPolicyFirstScheduled, config.AnchorPolicyNearestPast:
	default:
		return nil, pkgerrors.InvalidConfiguration("attendance.anchor_policy",
			fmt.Sprintf("未知的锚定策略 %q", policy))
	}
	return &ClassDayResolver{policy: policy}, nil
}

// Policy 当前锚定策略
func (r *ClassDayResolver) Policy() string { return r.policy }

// Resolve 根据排课星期与今天计算判定结果
func (r *ClassDayResolver) Resolve(weekdays []time.Weekday, today calendar.Date) (ClassDayResolution, error) {
	if len(weekdays) == 0 {
		return ClassDayResolution{}, pkgerrors.InvalidConfiguration("schedule", "班级未设置课表")
	}

	seen := make(map[time.Weekday]bool, len(weekdays))
	classDays := make([]time.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return ClassDayResolution{}, pkgerrors.InvalidConfiguration("weekday",
				fmt.Sprintf("无效的星期值 %d", int(wd)))
		}
		if !seen[wd] {
			seen[wd] = true
			classDays = append(classDays, wd)
		}
	}

	todayWeekday := today.Weekday()
	if seen[todayWeekday] {
		return ClassDayResolution{IsClassToday: true, AnchorWeekday: todayWeekday, ClassDays: classDays}, nil
	}

	anchor := classDays[0]
	if r.policy == config.AnchorPolicyNearestPast {
		best := calendar.CycleLength
		for _, wd := range classDays {
			// 今天不在课表中，距离必在 1..6
			back := (int(todayWeekday) - int(wd) + calendar.CycleLength) % calendar.CycleLength
			if back < best {
				best = back
				anchor = wd
			}
		}
	}
	return ClassDayResolution{IsClassToday: false, AnchorWeekday: anchor, ClassDays: classDays}, nil
}
