package repository

import (
	"context"
	"errors"
	"time"
	"yoi_portal_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, tx *gorm.DB, s *model.VideoSubmission) error {
	if s.ID == "" {
		s.ID = model.GenerateUUID()
	}
	return conn(ctx, r.DB, tx).Create(s).Error
}

func (r *SubmissionRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.VideoSubmission, error) {
	var s model.VideoSubmission
	err := conn(ctx, r.DB, tx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Transition 条件更新，只有当前状态为 from 时才会写入，返回是否更新成功
func (r *SubmissionRepository) Transition(ctx context.Context, tx *gorm.DB, id string, from, to model.SubmissionStatus, at time.Time) (bool, error) {
	result := conn(ctx, r.DB, tx).Model(&model.VideoSubmission{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"reviewed_at": at,
		})
	return result.RowsAffected == 1, result.Error
}

// List status 为空时返回全部，按提交时间倒序
func (r *SubmissionRepository) List(ctx context.Context, status model.SubmissionStatus) ([]model.VideoSubmission, error) {
	var list []model.VideoSubmission
	query := r.DB.WithContext(ctx).Model(&model.VideoSubmission{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("submitted_at DESC").Find(&list).Error
	return list, err
}

func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]model.VideoSubmission, error) {
	var list []model.VideoSubmission
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&list).Error
	return list, err
}

func (r *SubmissionRepository) CountByStatus(ctx context.Context, status model.SubmissionStatus) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.VideoSubmission{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// CountPendingBefore 提交时间早于 before 的待审核数量
func (r *SubmissionRepository) CountPendingBefore(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.VideoSubmission{}).
		Where("status = ? AND submitted_at < ?", model.SubmissionPending, before).
		Count(&count).Error
	return count, err
}

// CountPendingFor 同一学员在某序列上仍待审核的提交数量
func (r *SubmissionRepository) CountPendingFor(ctx context.Context, tx *gorm.DB, userID, moduleID, sequenceID string) (int64, error) {
	var count int64
	err := conn(ctx, r.DB, tx).Model(&model.VideoSubmission{}).
		Where("user_id = ? AND module_id = ? AND sequence_id = ? AND status = ?",
			userID, moduleID, sequenceID, model.SubmissionPending).
		Count(&count).Error
	return count, err
}

type InstructorResponseRepository struct {
	DB *gorm.DB
}

func NewInstructorResponseRepository(db *gorm.DB) *InstructorResponseRepository {
	return &InstructorResponseRepository{DB: db}
}

func (r *InstructorResponseRepository) Create(ctx context.Context, tx *gorm.DB, resp *model.InstructorResponse) error {
	if resp.ID == "" {
		resp.ID = model.GenerateUUID()
	}
	return conn(ctx, r.DB, tx).Create(resp).Error
}

// Latest 学员在某序列上最近一次收到的回应
func (r *InstructorResponseRepository) Latest(ctx context.Context, userID, moduleID, sequenceID string) (*model.InstructorResponse, error) {
	var resp model.InstructorResponse
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND module_id = ? AND sequence_id = ?", userID, moduleID, sequenceID).
		Order("created_at DESC").
		First(&resp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *InstructorResponseRepository) CountBySubmission(ctx context.Context, submissionID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.InstructorResponse{}).
		Where("submission_id = ?", submissionID).
		Count(&count).Error
	return count, err
}
