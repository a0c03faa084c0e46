package calendar

import (
	"fmt"
	"strings"
	"time"

	pkgerrors "classroll/backend/pkg/errors"
)

var weekdayByName = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday 解析英文星期名称（大小写不敏感，支持全称与三字母缩写）
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, pkgerrors.InvalidConfiguration("weekday", fmt.Sprintf("无法识别的星期名称 %q", name))
	}
	return wd, nil
}

// WeekdayName 返回星期全称，如 "Tuesday"
func WeekdayName(wd time.Weekday) string {
	return wd.String()
}

// validWeekday 拒绝 0-6 以外的值
func validWeekday(wd time.Weekday) error {
	if wd < time.Sunday || wd > time.Saturday {
		return pkgerrors.InvalidConfiguration("weekday", fmt.Sprintf("无效的星期值 %d", int(wd)))
	}
	return nil
}
