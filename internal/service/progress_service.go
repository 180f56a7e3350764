package service

import (
	"context"
	"fmt"
	"time"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/util"
	"yoi_portal_backend/pkg/logger"
	"yoi_portal_backend/pkg/monitoring"
	"yoi_portal_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ModuleProgress 单个模块的进度视图
type ModuleProgress struct {
	Module         *model.Module              `json:"module"`
	Sequences      []SequenceProgress         `json:"sequences"`
	Status         model.ModuleProgressStatus `json:"status"`
	CompletedCount int                        `json:"completedCount"`
	TotalSequences int                        `json:"totalSequences"`
}

// ModuleSummary 仪表盘上的模块卡片
type ModuleSummary struct {
	ModuleID       string                     `json:"moduleId"`
	Title          string                     `json:"title"`
	Subtitle       string                     `json:"subtitle"`
	CoverImageURL  string                     `json:"coverImageUrl"`
	ModuleOrder    int                        `json:"moduleOrder"`
	Status         model.ModuleProgressStatus `json:"status"`
	CompletedCount int                        `json:"completedCount"`
	TotalSequences int                        `json:"totalSequences"`
	// 当前可继续的序列，没有时为空
	CurrentSequenceID *string `json:"currentSequenceId"`
}

// SubmitResult 视频提交结果
type SubmitResult struct {
	Submission *model.VideoSubmission `json:"submission"`
	Progress   *ModuleProgress        `json:"progress"`
}

type ProgressService struct {
	DB             *gorm.DB
	ProgressRepo   *repository.ProgressRepository
	ModuleRepo     *repository.ModuleRepository
	SequenceRepo   *repository.SequenceRepository
	SubmissionRepo *repository.SubmissionRepository
	Uploads        *UploadService
	Notifier       *NotificationService
	now            func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	progressRepo *repository.ProgressRepository,
	moduleRepo *repository.ModuleRepository,
	sequenceRepo *repository.SequenceRepository,
	submissionRepo *repository.SubmissionRepository,
	uploads *UploadService,
	notifier *NotificationService,
) *ProgressService {
	return &ProgressService{
		DB:             db,
		ProgressRepo:   progressRepo,
		ModuleRepo:     moduleRepo,
		SequenceRepo:   sequenceRepo,
		SubmissionRepo: submissionRepo,
		Uploads:        uploads,
		Notifier:       notifier,
		now:            time.Now,
	}
}

// locate 读取模块、序列列表和目标序列
func (s *ProgressService) locate(ctx context.Context, moduleID, sequenceID string) (*model.Module, []model.Sequence, *model.Sequence, error) {
	module, err := s.ModuleRepo.FindByID(ctx, moduleID)
	if err != nil {
		return nil, nil, nil, err
	}
	if module == nil {
		return nil, nil, nil, util.ErrModuleNotFound
	}
	sequences, err := s.SequenceRepo.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, nil, nil, err
	}
	if sequenceID == "" {
		return module, sequences, nil, nil
	}
	for i := range sequences {
		if sequences[i].ID == sequenceID {
			return module, sequences, &sequences[i], nil
		}
	}
	seq, err := s.SequenceRepo.FindByID(ctx, nil, sequenceID)
	if err != nil {
		return nil, nil, nil, err
	}
	if seq != nil {
		return nil, nil, nil, util.ErrSequenceNotInModule
	}
	return nil, nil, nil, util.ErrSequenceNotFound
}

func buildProgress(module *model.Module, sequences []model.Sequence, entries []model.ProgressEntry) *ModuleProgress {
	return &ModuleProgress{
		Module:         module,
		Sequences:      ResolveOrdered(sequences, entries),
		Status:         ModuleStatusOf(len(sequences), entries),
		CompletedCount: CountCompleted(entries),
		TotalSequences: len(sequences),
	}
}

func (s *ProgressService) effectiveStatus(ctx context.Context, userID, moduleID string, sequences []model.Sequence, seq *model.Sequence) (model.SequenceStatus, error) {
	entries, err := s.ProgressRepo.ListForModule(ctx, userID, moduleID)
	if err != nil {
		return "", err
	}
	return Resolve(sequences, entries)[seq.ID], nil
}

// SequenceStatus 单个序列的有效状态
func (s *ProgressService) SequenceStatus(ctx context.Context, userID, moduleID, sequenceID string) (*model.Sequence, model.SequenceStatus, error) {
	if sequenceID == "" {
		return nil, "", util.ErrMissingFields
	}
	_, sequences, seq, err := s.locate(ctx, moduleID, sequenceID)
	if err != nil {
		return nil, "", err
	}
	status, err := s.effectiveStatus(ctx, userID, moduleID, sequences, seq)
	if err != nil {
		return nil, "", err
	}
	return seq, status, nil
}

// ModuleProgress 模块内每个序列的有效状态
func (s *ProgressService) ModuleProgress(ctx context.Context, userID, moduleID string) (*ModuleProgress, error) {
	module, sequences, _, err := s.locate(ctx, moduleID, "")
	if err != nil {
		return nil, err
	}
	entries, err := s.ProgressRepo.ListForModule(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	return buildProgress(module, sequences, entries), nil
}

// Dashboard 所有已发布模块的汇总，按 module_order 排序
func (s *ProgressService) Dashboard(ctx context.Context, userID string) ([]ModuleSummary, error) {
	modules, err := s.ModuleRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	grouped, err := s.SequenceRepo.ListByModules(ctx, ids)
	if err != nil {
		return nil, err
	}
	entries, err := s.ProgressRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byModule := make(map[string][]model.ProgressEntry)
	for _, e := range entries {
		byModule[e.ModuleID] = append(byModule[e.ModuleID], e)
	}

	summaries := make([]ModuleSummary, 0, len(modules))
	for _, m := range modules {
		sequences := grouped[m.ID]
		moduleEntries := byModule[m.ID]
		summary := ModuleSummary{
			ModuleID:       m.ID,
			Title:          m.Title,
			Subtitle:       m.Subtitle,
			CoverImageURL:  m.CoverImageURL,
			ModuleOrder:    m.ModuleOrder,
			Status:         ModuleStatusOf(len(sequences), moduleEntries),
			CompletedCount: CountCompleted(moduleEntries),
			TotalSequences: len(sequences),
		}
		for _, sp := range ResolveOrdered(sequences, moduleEntries) {
			if sp.Status == model.StatusUnlocked || sp.Status == model.StatusAwaitingResponse {
				id := sp.SequenceID
				summary.CurrentSequenceID = &id
				break
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CompleteSequence 学员完成无需审核的序列，并解锁下一个序列
func (s *ProgressService) CompleteSequence(ctx context.Context, userID, moduleID, sequenceID string) (progress *ModuleProgress, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "progress.CompleteSequence", tracing.Attrs(userID, moduleID, sequenceID))
	defer func() { tracing.EndSpan(span, err) }()

	if userID == "" || moduleID == "" || sequenceID == "" {
		return nil, util.ErrMissingFields
	}
	module, sequences, seq, err := s.locate(ctx, moduleID, sequenceID)
	if err != nil {
		return nil, err
	}
	if seq.Gated() {
		return nil, util.ErrSequenceGated
	}

	status, err := s.effectiveStatus(ctx, userID, moduleID, sequences, seq)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.StatusLocked:
		return nil, util.ErrSequenceLocked
	case model.StatusAwaitingResponse:
		return nil, util.ErrSequenceAwaitingReview
	}

	now := s.now()
	next := NextSequence(sequences, seq)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ProgressRepo.Upsert(ctx, tx, &model.ProgressEntry{
			UserID:      userID,
			ModuleID:    moduleID,
			SequenceID:  sequenceID,
			Status:      model.StatusCompleted,
			CompletedAt: &now,
		}); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		if next != nil {
			if err := s.ProgressRepo.UnlockIfUntouched(ctx, tx, userID, moduleID, next.ID); err != nil {
				return fmt.Errorf("unlock next: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.ProgressTransitions.WithLabelValues("complete").Inc()
	logger.Log.Info("Sequence completed",
		zap.String("user_id", userID),
		zap.String("module_id", moduleID),
		zap.String("sequence_id", sequenceID))

	if s.Notifier != nil {
		s.Notifier.Go("step_completed", func(ctx context.Context) {
			s.Notifier.StepCompleted(ctx, userID, moduleID, sequenceID, now)
		})
	}

	entries, err := s.ProgressRepo.ListForModule(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	return buildProgress(module, sequences, entries), nil
}

// SubmitVideo 学员上传需审核的视频，序列进入 awaiting_response，不解锁下一个序列
func (s *ProgressService) SubmitVideo(ctx context.Context, userID, moduleID, sequenceID string, in MediaUpload) (result *SubmitResult, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "progress.SubmitVideo", tracing.Attrs(userID, moduleID, sequenceID))
	defer func() { tracing.EndSpan(span, err) }()

	if userID == "" || moduleID == "" || sequenceID == "" || in.Reader == nil {
		return nil, util.ErrMissingFields
	}
	module, sequences, seq, err := s.locate(ctx, moduleID, sequenceID)
	if err != nil {
		return nil, err
	}
	if !seq.RequiresUpload {
		return nil, util.ErrUploadNotRequired
	}

	status, err := s.effectiveStatus(ctx, userID, moduleID, sequences, seq)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.StatusLocked:
		return nil, util.ErrSequenceLocked
	case model.StatusCompleted:
		return nil, util.ErrSequenceAlreadyCompleted
	}

	media, err := s.Uploads.SaveAssignment(ctx, userID, seq, in)
	if err != nil {
		return nil, err
	}

	sub, err := s.recordSubmission(ctx, userID, moduleID, sequenceID, media)
	if err != nil {
		if delErr := s.Uploads.Storage.Delete(ctx, media.Key); delErr != nil {
			logger.Log.Warn("Failed to remove orphaned upload", zap.String("key", media.Key), zap.Error(delErr))
		}
		return nil, err
	}

	entries, err := s.ProgressRepo.ListForModule(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Submission: sub, Progress: buildProgress(module, sequences, entries)}, nil
}

// recordSubmission 在同一事务中创建待审核提交并把条目改为 awaiting_response
func (s *ProgressService) recordSubmission(ctx context.Context, userID, moduleID, sequenceID string, media *StoredMedia) (*model.VideoSubmission, error) {
	now := s.now()
	sub := &model.VideoSubmission{
		UserID:      userID,
		ModuleID:    moduleID,
		SequenceID:  sequenceID,
		VideoURL:    media.URL,
		Status:      model.SubmissionPending,
		SubmittedAt: now,
	}
	if media.Seconds > 0 {
		seconds := media.Seconds
		sub.DurationSeconds = &seconds
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.SubmissionRepo.Create(ctx, tx, sub); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		if err := s.ProgressRepo.Upsert(ctx, tx, &model.ProgressEntry{
			UserID:     userID,
			ModuleID:   moduleID,
			SequenceID: sequenceID,
			Status:     model.StatusAwaitingResponse,
		}); err != nil {
			return fmt.Errorf("mark awaiting response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.ProgressTransitions.WithLabelValues("submit").Inc()
	logger.Log.Info("Video submitted",
		zap.String("user_id", userID),
		zap.String("module_id", moduleID),
		zap.String("sequence_id", sequenceID),
		zap.String("submission_id", sub.ID))

	if s.Notifier != nil {
		submitted := *sub
		s.Notifier.Go("submission_received", func(ctx context.Context) {
			s.Notifier.SubmissionReceived(ctx, &submitted)
		})
	}
	return sub, nil
}
