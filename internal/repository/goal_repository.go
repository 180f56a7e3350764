package repository

import (
	"context"
	"errors"
	"time"
	"yoi_portal_backend/internal/model"

	"gorm.io/gorm"
)

// GoalRepository 处理学员目标的数据访问
type GoalRepository struct {
	DB *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{DB: db}
}

// CreateBatch 目标设定表单一次提交多条
func (r *GoalRepository) CreateBatch(ctx context.Context, goals []model.UserGoal) error {
	if len(goals) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&goals).Error
}

// UpdateStatus 更新目标状态和进度备注
func (r *GoalRepository) UpdateStatus(ctx context.Context, id string, status model.GoalStatus, notes *string) error {
	fields := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if notes != nil {
		fields["progress_notes"] = *notes
	}
	return r.DB.WithContext(ctx).Model(&model.UserGoal{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// FindByID 根据ID查找目标
func (r *GoalRepository) FindByID(ctx context.Context, id string) (*model.UserGoal, error) {
	var goal model.UserGoal
	err := r.DB.WithContext(ctx).First(&goal, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// FindByUserID 获取用户的目标，按目标日期排序
func (r *GoalRepository) FindByUserID(ctx context.Context, userID string) ([]model.UserGoal, error) {
	var goals []model.UserGoal
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("target_date ASC").
		Find(&goals).Error
	return goals, err
}
