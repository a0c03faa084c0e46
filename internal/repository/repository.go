package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Group      GroupRepository
	Enrollment EnrollmentRepository
	Attendance AttendanceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Group:      NewGroupRepo(db),
		Enrollment: NewEnrollmentRepo(db),
		Attendance: NewAttendanceRepo(db),
	}
}
