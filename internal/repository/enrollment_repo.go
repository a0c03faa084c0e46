package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"classroll/backend/internal/model"
)

// EnrollmentRepository 报名（名册）只读访问接口
type EnrollmentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	// ListActiveByGroup 班级当前有效名册（报名有效且学生有效），预加载学生
	ListActiveByGroup(ctx context.Context, groupID string) ([]model.Enrollment, error)
	// FindByGroupAndStudent 查询学生在班级中的有效报名，不存在返回 gorm.ErrRecordNotFound
	FindByGroupAndStudent(ctx context.Context, groupID, studentID string) (*model.Enrollment, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Group").
		Where("enrollment_id = ?", id).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) ListActiveByGroup(ctx context.Context, groupID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Joins("JOIN students ON students.student_id = enrollments.student_id").
		Where("enrollments.group_id = ? AND enrollments.is_active = ? AND students.is_active = ?", groupID, true, true).
		Preload("Student").
		Order("students.name ASC, enrollments.enrollment_id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) FindByGroupAndStudent(ctx context.Context, groupID, studentID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	// student_id 列为 uuid，非法值直接视为未报名
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	err := r.db.WithContext(ctx).
		Joins("JOIN students ON students.student_id = enrollments.student_id").
		Where("enrollments.group_id = ? AND enrollments.student_id = ? AND enrollments.is_active = ? AND students.is_active = ?",
			groupID, studentID, true, true).
		Preload("Student").
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}
