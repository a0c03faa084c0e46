package calendar

import "time"

// Clock 提供"今天"
type Clock interface {
	Today() Date
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock 以给定时区的墙上时间计算今天，loc 为 nil 时使用 UTC
func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Today() Date {
	return DateOf(time.Now().In(c.loc))
}

// FixedClock 固定日期的时钟，用于测试
type FixedClock Date

// Today 实现 Clock
func (c FixedClock) Today() Date { return Date(c) }
