package repository

import (
	"context"
	"yoi_portal_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = model.GenerateUUID()
	}
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) List(ctx context.Context, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	var (
		list  []model.Notification
		total int64
	)
	query := r.DB.WithContext(ctx).Model(&model.Notification{})
	if unreadOnly {
		query = query.Where(map[string]interface{}{"read": false})
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

// MarkRead 通知不存在时返回 false
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Update("read", true).Error
	return err == nil, err
}
