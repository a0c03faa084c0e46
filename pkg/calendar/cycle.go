package calendar

import "time"

// CycleLength 考勤周期长度（天）
const CycleLength = 7

// WeekCycle 半开区间 [StartDate, EndDate)
// StartDate 总是落在锚定星期上，EndDate = StartDate + 7 天
type WeekCycle struct {
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`
}

// Contains d 是否落在周期内
func (c WeekCycle) Contains(d Date) bool {
	return !d.Before(c.StartDate) && d.Before(c.EndDate)
}

// Days 周期内的七个日期
func (c WeekCycle) Days() []Date {
	days := make([]Date, 0, CycleLength)
	for d := c.StartDate; d.Before(c.EndDate); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// CurrentWeekCycle 计算包含 today 的、以 anchor 为起点的周期
//
//	delta     = (today.weekday - anchor) mod 7   ∈ [0, 6]
//	startDate = today - delta
//	endDate   = startDate + 7
func CurrentWeekCycle(anchor time.Weekday, today Date) (WeekCycle, error) {
	if err := validWeekday(anchor); err != nil {
		return WeekCycle{}, err
	}
	delta := (int(today.Weekday()) - int(anchor) + CycleLength) % CycleLength
	start := today.AddDays(-delta)
	return WeekCycle{StartDate: start, EndDate: start.AddDays(CycleLength)}, nil
}

// CurrentWeekCycleByName 同 CurrentWeekCycle，锚定星期以名称给出
func CurrentWeekCycleByName(anchorName string, today Date) (WeekCycle, error) {
	anchor, err := ParseWeekday(anchorName)
	if err != nil {
		return WeekCycle{}, err
	}
	return CurrentWeekCycle(anchor, today)
}

// MostRecentOccurrence 不晚于 today 的最近一个 anchor（含 today 本身）
func MostRecentOccurrence(anchor time.Weekday, today Date) (Date, error) {
	cycle, err := CurrentWeekCycle(anchor, today)
	if err != nil {
		return Date{}, err
	}
	return cycle.StartDate, nil
}

// IsSameCalendarDay 比较两个时间点在各自时区下的墙上日期
func IsSameCalendarDay(t1, t2 time.Time) bool {
	return DateOf(t1) == DateOf(t2)
}

// ToDateKey 时间点的 YYYY-MM-DD 键
func ToDateKey(t time.Time) string {
	return DateOf(t).Key()
}
