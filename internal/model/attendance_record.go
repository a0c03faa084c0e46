package model

import (
	"fmt"

	"classroll/backend/pkg/calendar"
	pkgerrors "classroll/backend/pkg/errors"
)

// AttendanceStatus 考勤状态，封闭取值
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// AttendanceStatuses 全部合法状态（按展示顺序）
var AttendanceStatuses = []AttendanceStatus{
	AttendanceStatusPresent,
	AttendanceStatusAbsent,
	AttendanceStatusLate,
}

// Valid 是否为合法状态
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	}
	return false
}

// ParseAttendanceStatus 解析状态字符串
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	status := AttendanceStatus(s)
	if !status.Valid() {
		return "", pkgerrors.Validation("status", fmt.Sprintf("无效的考勤状态 %q，可选 present | absent | late", s))
	}
	return status, nil
}

// AttendanceRecord 考勤记录表 — 对应 attendance_records
// (enrollment_id, date) 唯一，是批量写入幂等的依据
type AttendanceRecord struct {
	RecordID     string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                    json:"record_id"`
	EnrollmentID string           `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_records_enrollment_date" json:"enrollment_id"`
	Date         calendar.Date    `gorm:"type:date;not null;uniqueIndex:uq_attendance_records_enrollment_date" json:"date"`
	Status       AttendanceStatus `gorm:"type:varchar(10);not null"                                         json:"status"`
	Note         *string          `gorm:"type:text"                                                         json:"note,omitempty"`
	RecordedBy   *string          `gorm:"type:uuid"                                                         json:"recorded_by,omitempty"`
	BaseModel

	// 关联
	Enrollment *Enrollment `gorm:"foreignKey:EnrollmentID;references:EnrollmentID" json:"enrollment,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// UniqueConstraintEnrollmentDate (enrollment_id, date) 唯一约束名
const UniqueConstraintEnrollmentDate = "uq_attendance_records_enrollment_date"

// StatusCount 按状态聚合的计数
type StatusCount struct {
	Status AttendanceStatus
	Count  int64
}
