// Package calendar 提供与时区无关的"日历日"类型以及按周循环的考勤周期计算。
//
// 所有运算均在日历日（年/月/日）上进行，而不是在时间点上进行，
// 避免本地时间零点附近的差一天问题。
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "classroll/backend/pkg/errors"
)

// DateLayout 日期键格式（YYYY-MM-DD）
const DateLayout = "2006-01-02"

// Date 日历日，不含时间与时区
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate 构造日历日，越界的月/日会按 time.Date 规则归一化
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf 取 t 在其自身时区下的墙上日期
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, pkgerrors.Validation("date", fmt.Sprintf("日期格式无效 %q，应为 YYYY-MM-DD", s))
	}
	return DateOf(t), nil
}

// MustParseDate 解析失败时 panic，仅用于常量与测试
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero 是否为零值
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time 返回该日 UTC 零点
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Key 稳定的 YYYY-MM-DD 键，用于相等与范围比较
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// String 实现 fmt.Stringer
func (d Date) String() string { return d.Key() }

// Weekday 该日是星期几
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays 加减天数
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Compare 返回 -1 / 0 / +1
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

// Before d 早于 o
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After d 晚于 o
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// DaysSince 返回 d - o 的天数
func (d Date) DaysSince(o Date) int {
	return int(d.Time().Sub(o.Time()) / (24 * time.Hour))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// ── JSON ──

// MarshalJSON 输出 "YYYY-MM-DD"，零值输出 null
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Key())
}

// UnmarshalJSON 解析 "YYYY-MM-DD"
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return pkgerrors.Validation("date", "日期必须为字符串")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ── GORM / database/sql ──

// GormDataType 对应 PostgreSQL DATE 列
func (Date) GormDataType() string { return "date" }

// Scan 实现 sql.Scanner
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("Date.Scan: %w", err)
	}
	*d = parsed
	return nil
}

// Value 实现 driver.Valuer
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Key(), nil
}
