package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"classroll/backend/internal/model"
	"classroll/backend/pkg/calendar"
	"classroll/backend/pkg/database"
	pkgerrors "classroll/backend/pkg/errors"
)

// AttendanceRepository 考勤记录数据访问接口
type AttendanceRepository interface {
	// Create 新建记录；(enrollment_id, date) 冲突时返回 pkgerrors.ErrDuplicate
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	FindByEnrollmentAndDate(ctx context.Context, enrollmentID string, date calendar.Date) (*model.AttendanceRecord, error)
	// Update 更新 status / note / recorded_by；记录已不存在时返回 gorm.ErrRecordNotFound
	Update(ctx context.Context, record *model.AttendanceRecord) error
	Delete(ctx context.Context, id string) error

	// ListByEnrollmentsInRange 查询一组报名在 [start, end) 内的记录
	ListByEnrollmentsInRange(ctx context.Context, enrollmentIDs []string, start, end calendar.Date) ([]model.AttendanceRecord, error)
	// ListByGroupAndDate 查询班级某一天的全部记录，预加载报名与学生
	ListByGroupAndDate(ctx context.Context, groupID string, date calendar.Date) ([]model.AttendanceRecord, error)
	// CountByStatus 按状态统计班级记录数，start / end 为闭区间且均可为空
	CountByStatus(ctx context.Context, groupID string, start, end *calendar.Date) ([]model.StatusCount, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

const joinEnrollments = "JOIN enrollments ON enrollments.enrollment_id = attendance_records.enrollment_id"

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if database.IsUniqueViolation(err, model.UniqueConstraintEnrollmentDate) {
		return pkgerrors.ErrDuplicate
	}
	return err
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Enrollment.Student").
		Preload("Enrollment.Group").
		Where("record_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) FindByEnrollmentAndDate(ctx context.Context, enrollmentID string, date calendar.Date) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND date = ?", enrollmentID, date).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) Update(ctx context.Context, record *model.AttendanceRecord) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("record_id = ?", record.RecordID).
		Updates(map[string]interface{}{
			"status":      record.Status,
			"note":        record.Note,
			"recorded_by": record.RecordedBy,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	record.UpdatedAt = now
	return nil
}

func (r *attendanceRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("record_id = ?", id).
		Delete(&model.AttendanceRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attendanceRepo) ListByEnrollmentsInRange(ctx context.Context, enrollmentIDs []string, start, end calendar.Date) ([]model.AttendanceRecord, error) {
	if len(enrollmentIDs) == 0 {
		return nil, nil
	}
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("enrollment_id IN ? AND date >= ? AND date < ?", enrollmentIDs, start, end).
		Order("date ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByGroupAndDate(ctx context.Context, groupID string, date calendar.Date) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Joins(joinEnrollments).
		Where("enrollments.group_id = ? AND attendance_records.date = ?", groupID, date).
		Preload("Enrollment.Student").
		Order("attendance_records.created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) CountByStatus(ctx context.Context, groupID string, start, end *calendar.Date) ([]model.StatusCount, error) {
	db := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Select("attendance_records.status AS status, COUNT(*) AS count").
		Joins(joinEnrollments).
		Where("enrollments.group_id = ?", groupID)

	if start != nil {
		db = db.Where("attendance_records.date >= ?", *start)
	}
	if end != nil {
		db = db.Where("attendance_records.date <= ?", *end)
	}

	var counts []model.StatusCount
	err := db.Group("attendance_records.status").Scan(&counts).Error
	return counts, err
}
