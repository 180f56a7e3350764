package repository

import (
	"context"
	"yoi_portal_backend/internal/model"

	"gorm.io/gorm"
)

type ReflectionRepository struct {
	DB *gorm.DB
}

func NewReflectionRepository(db *gorm.DB) *ReflectionRepository {
	return &ReflectionRepository{DB: db}
}

func (r *ReflectionRepository) Create(ctx context.Context, reflection *model.VoiceReflection) error {
	if reflection.ID == "" {
		reflection.ID = model.GenerateUUID()
	}
	return r.DB.WithContext(ctx).Create(reflection).Error
}

func (r *ReflectionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.VoiceReflection, error) {
	var list []model.VoiceReflection
	query := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&list).Error
	return list, err
}
