package repository

import (
	"context"
	"errors"
	"time"
	"yoi_portal_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 学员进度台账，只有写入没有删除
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

var progressTriple = []clause.Column{{Name: "user_id"}, {Name: "module_id"}, {Name: "sequence_id"}}

// Upsert 按 (user, module, sequence) 插入或覆盖状态，后写者生效
func (r *ProgressRepository) Upsert(ctx context.Context, tx *gorm.DB, entry *model.ProgressEntry) error {
	if entry.ID == "" {
		entry.ID = model.GenerateUUID()
	}
	return conn(ctx, r.DB, tx).Clauses(clause.OnConflict{
		Columns:   progressTriple,
		DoUpdates: clause.AssignmentColumns([]string{"status", "completed_at", "updated_at"}),
	}).Create(entry).Error
}

// UnlockIfUntouched 写入 unlocked，已完成或等待审核的条目保持不变
func (r *ProgressRepository) UnlockIfUntouched(ctx context.Context, tx *gorm.DB, userID, moduleID, sequenceID string) error {
	entry := &model.ProgressEntry{
		UserID:     userID,
		ModuleID:   moduleID,
		SequenceID: sequenceID,
		Status:     model.StatusUnlocked,
	}
	entry.ID = model.GenerateUUID()
	return conn(ctx, r.DB, tx).Clauses(clause.OnConflict{
		Columns: progressTriple,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN progress_entries.status IN (?, ?) THEN progress_entries.status ELSE ? END",
				model.StatusCompleted, model.StatusAwaitingResponse, model.StatusUnlocked),
			"updated_at": time.Now(),
		}),
	}).Create(entry).Error
}

// Find 未找到时返回 nil, nil
func (r *ProgressRepository) Find(ctx context.Context, tx *gorm.DB, userID, moduleID, sequenceID string) (*model.ProgressEntry, error) {
	var entry model.ProgressEntry
	err := conn(ctx, r.DB, tx).
		Where("user_id = ? AND module_id = ? AND sequence_id = ?", userID, moduleID, sequenceID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ProgressRepository) ListForModule(ctx context.Context, userID, moduleID string) ([]model.ProgressEntry, error) {
	var entries []model.ProgressEntry
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Find(&entries).Error
	return entries, err
}

func (r *ProgressRepository) ListForUser(ctx context.Context, userID string) ([]model.ProgressEntry, error) {
	var entries []model.ProgressEntry
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&entries).Error
	return entries, err
}
