package repository

import (
	"context"
	"errors"
	"yoi_portal_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List approved 为 nil 时不过滤
func (r *UserRepository) List(ctx context.Context, approved *bool) ([]model.User, error) {
	var users []model.User
	query := r.DB.WithContext(ctx).Model(&model.User{})
	if approved != nil {
		query = query.Where("approved = ?", *approved)
	}
	err := query.Order("created_at DESC").Find(&users).Error
	return users, err
}

// SetApproved 返回受影响行数为 0 时表示用户不存在
func (r *UserRepository) SetApproved(ctx context.Context, id string, approved bool) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("approved", approved)
	return result.RowsAffected > 0, result.Error
}

// UpdateProfile 只写入 updates 中给出的列
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *UserRepository) CountByRole(ctx context.Context, role model.UserRole) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (r *UserRepository) ByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	users := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	var list []model.User
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		users[u.ID] = u
	}
	return users, nil
}

// ListReviewers 管理员和导师，用于邮件通知
func (r *UserRepository) ListReviewers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Where("role IN ?", []model.UserRole{model.Admin, model.Instructor}).
		Find(&users).Error
	return users, err
}
