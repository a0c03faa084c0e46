package repository

import (
	"context"

	"gorm.io/gorm"

	"classroll/backend/internal/model"
)

// GroupRepository 班级与课表只读访问接口
type GroupRepository interface {
	// GetByID 查询班级并按存储顺序加载每周课表
	GetByID(ctx context.Context, id string) (*model.Group, error)
}

type groupRepo struct {
	db *gorm.DB
}

// NewGroupRepo 创建 GroupRepository 实例
func NewGroupRepo(db *gorm.DB) GroupRepository {
	return &groupRepo{db: db}
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC, schedule_id ASC")
		}).
		Where("group_id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}
