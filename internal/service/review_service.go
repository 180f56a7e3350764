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

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reviewLockTTL = 30 * time.Second

// ReviewInput 导师审核请求
type ReviewInput struct {
	UserID            string `json:"user_id"`
	ModuleID          string `json:"module_id"`
	SequenceID        string `json:"sequence_id"`
	SubmissionID      string `json:"submission_id"`
	ResponseVideoURL  string `json:"response_video_url"`
	ResponseAudioURL  string `json:"response_audio_url"`
	Message           string `json:"message"`
	NextMeditationURL string `json:"next_meditation_url" binding:"omitempty,url"`
	InstructorID      string `json:"instructor_id"`
}

// Validate 必填字段缺失时返回 ErrMissingFields，回应媒体可以是视频或音频
func (in *ReviewInput) Validate() error {
	if in.UserID == "" || in.ModuleID == "" || in.SequenceID == "" ||
		in.SubmissionID == "" || in.InstructorID == "" ||
		(in.ResponseVideoURL == "" && in.ResponseAudioURL == "") {
		return util.ErrMissingFields
	}
	return nil
}

// ReviewResult 审核结果，NextSequenceID 为空表示模块已全部完成
type ReviewResult struct {
	Success         bool    `json:"success"`
	NextSequenceID  *string `json:"next_sequence_id"`
	ResponseID      string  `json:"response_id,omitempty"`
	AlreadyReviewed bool    `json:"already_reviewed,omitempty"`
}

// RejectInput 退回提交
type RejectInput struct {
	SubmissionID string `json:"submission_id"`
	InstructorID string `json:"instructor_id"`
	Reason       string `json:"reason"`
}

type ReviewService struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Access         *AccessService
	ProgressRepo   *repository.ProgressRepository
	SequenceRepo   *repository.SequenceRepository
	SubmissionRepo *repository.SubmissionRepository
	ResponseRepo   *repository.InstructorResponseRepository
	Notifier       *NotificationService
	now            func() time.Time
}

func NewReviewService(
	db *gorm.DB,
	rdb *redis.Client,
	access *AccessService,
	progressRepo *repository.ProgressRepository,
	sequenceRepo *repository.SequenceRepository,
	submissionRepo *repository.SubmissionRepository,
	responseRepo *repository.InstructorResponseRepository,
	notifier *NotificationService,
) *ReviewService {
	return &ReviewService{
		DB:             db,
		Redis:          rdb,
		Access:         access,
		ProgressRepo:   progressRepo,
		SequenceRepo:   sequenceRepo,
		SubmissionRepo: submissionRepo,
		ResponseRepo:   responseRepo,
		Notifier:       notifier,
		now:            time.Now,
	}
}

// lock 同一提交同时只允许一个审核，未启用 redis 时由数据库条件更新保证
func (s *ReviewService) lock(ctx context.Context, submissionID string) (func(), error) {
	if s.Redis == nil {
		return func() {}, nil
	}
	key := "review:lock:" + submissionID
	ok, err := s.Redis.SetNX(ctx, key, "1", reviewLockTTL).Result()
	if err != nil {
		logger.Log.Warn("Review lock unavailable, relying on database precondition",
			zap.String("submission_id", submissionID),
			zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, util.ErrReviewInProgress
	}
	return func() {
		if err := s.Redis.Del(context.Background(), key).Err(); err != nil {
			logger.Log.Warn("Failed to release review lock", zap.String("submission_id", submissionID), zap.Error(err))
		}
	}, nil
}

// nextSequence 同模块中 sequence_number + 1 的序列
func (s *ReviewService) nextSequence(ctx context.Context, tx *gorm.DB, sequenceID string) (*model.Sequence, error) {
	seq, err := s.SequenceRepo.FindByID(ctx, tx, sequenceID)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, util.ErrSequenceNotFound
	}
	return s.SequenceRepo.FindByNumber(ctx, tx, seq.ModuleID, seq.SequenceNumber+1)
}

func matches(sub *model.VideoSubmission, userID, moduleID, sequenceID string) bool {
	return sub.UserID == userID && sub.ModuleID == moduleID && sub.SequenceID == sequenceID
}

// Review 写入导师回应，提交改为 reviewed，序列完成并解锁下一个序列，全部在一个事务中执行
// 已审核的提交再次审核时不写入任何内容，返回相同的 next_sequence_id
func (s *ReviewService) Review(ctx context.Context, in ReviewInput) (result *ReviewResult, err error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracing.Tracer.Start(ctx, "review.Review", tracing.Attrs(in.UserID, in.ModuleID, in.SequenceID))
	defer func() { tracing.EndSpan(span, err) }()

	if _, err := s.Access.RequireReviewer(ctx, in.InstructorID); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, in.SubmissionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	result = &ReviewResult{Success: true}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.SubmissionRepo.FindByID(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return util.ErrSubmissionNotFound
		}
		if !matches(sub, in.UserID, in.ModuleID, in.SequenceID) {
			return util.ErrSubmissionMismatch
		}

		next, err := s.nextSequence(ctx, tx, in.SequenceID)
		if err != nil {
			return err
		}
		if next != nil {
			id := next.ID
			result.NextSequenceID = &id
		}

		switch sub.Status {
		case model.SubmissionReviewed:
			result.AlreadyReviewed = true
			return nil
		case model.SubmissionRejected:
			return util.ErrSubmissionNotPending
		}

		resp := &model.InstructorResponse{
			SubmissionID:      sub.ID,
			InstructorID:      in.InstructorID,
			UserID:            in.UserID,
			ModuleID:          in.ModuleID,
			SequenceID:        in.SequenceID,
			ResponseVideoURL:  in.ResponseVideoURL,
			ResponseAudioURL:  in.ResponseAudioURL,
			Message:           in.Message,
			NextMeditationURL: in.NextMeditationURL,
			CreatedAt:         now,
		}
		if err := s.ResponseRepo.Create(ctx, tx, resp); err != nil {
			return fmt.Errorf("create response: %w", err)
		}
		result.ResponseID = resp.ID

		ok, err := s.SubmissionRepo.Transition(ctx, tx, sub.ID, model.SubmissionPending, model.SubmissionReviewed, now)
		if err != nil {
			return fmt.Errorf("mark reviewed: %w", err)
		}
		if !ok {
			return util.ErrReviewInProgress
		}

		if err := s.ProgressRepo.Upsert(ctx, tx, &model.ProgressEntry{
			UserID:      in.UserID,
			ModuleID:    in.ModuleID,
			SequenceID:  in.SequenceID,
			Status:      model.StatusCompleted,
			CompletedAt: &now,
		}); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}

		if next != nil {
			if err := s.ProgressRepo.UnlockIfUntouched(ctx, tx, in.UserID, in.ModuleID, next.ID); err != nil {
				return fmt.Errorf("unlock next: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyReviewed {
		logger.Log.Info("Submission already reviewed, skipping",
			zap.String("submission_id", in.SubmissionID),
			zap.String("instructor_id", in.InstructorID))
		return result, nil
	}

	monitoring.ProgressTransitions.WithLabelValues("review").Inc()
	logger.Log.Info("Submission reviewed",
		zap.String("submission_id", in.SubmissionID),
		zap.String("instructor_id", in.InstructorID),
		zap.String("user_id", in.UserID),
		zap.String("sequence_id", in.SequenceID),
		zap.Stringp("next_sequence_id", result.NextSequenceID))

	if s.Notifier != nil {
		userID, moduleID, sequenceID := in.UserID, in.ModuleID, in.SequenceID
		s.Notifier.Go("response_ready", func(ctx context.Context) {
			s.Notifier.ResponseReady(ctx, userID, moduleID, sequenceID)
		})
	}
	return result, nil
}

// Reject 退回待审核的提交，没有其他待审核提交时学员的条目回到 unlocked 以便重新上传
func (s *ReviewService) Reject(ctx context.Context, in RejectInput) (err error) {
	if in.SubmissionID == "" || in.InstructorID == "" {
		return util.ErrMissingFields
	}
	if _, err := s.Access.RequireReviewer(ctx, in.InstructorID); err != nil {
		return err
	}

	unlock, err := s.lock(ctx, in.SubmissionID)
	if err != nil {
		return err
	}
	defer unlock()

	now := s.now()
	var sub *model.VideoSubmission
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.SubmissionRepo.FindByID(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		if found == nil {
			return util.ErrSubmissionNotFound
		}
		sub = found
		ok, err := s.SubmissionRepo.Transition(ctx, tx, sub.ID, model.SubmissionPending, model.SubmissionRejected, now)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrSubmissionNotPending
		}
		reopen, err := s.shouldReopen(ctx, tx, sub)
		if err != nil || !reopen {
			return err
		}
		return s.ProgressRepo.Upsert(ctx, tx, &model.ProgressEntry{
			UserID:     sub.UserID,
			ModuleID:   sub.ModuleID,
			SequenceID: sub.SequenceID,
			Status:     model.StatusUnlocked,
		})
	})
	if err != nil {
		return err
	}

	monitoring.ProgressTransitions.WithLabelValues("reject").Inc()
	logger.Log.Info("Submission rejected",
		zap.String("submission_id", sub.ID),
		zap.String("instructor_id", in.InstructorID),
		zap.String("reason", in.Reason))
	return nil
}

// shouldReopen 只有条目仍在等待审核且没有其他待审核提交时才退回 unlocked
// 已完成的序列或学员重新上传后的新提交不受旧提交被退回的影响
func (s *ReviewService) shouldReopen(ctx context.Context, tx *gorm.DB, sub *model.VideoSubmission) (bool, error) {
	entry, err := s.ProgressRepo.Find(ctx, tx, sub.UserID, sub.ModuleID, sub.SequenceID)
	if err != nil {
		return false, err
	}
	if entry == nil || entry.Status != model.StatusAwaitingResponse {
		return false, nil
	}
	pending, err := s.SubmissionRepo.CountPendingFor(ctx, tx, sub.UserID, sub.ModuleID, sub.SequenceID)
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}

// LatestResponse 学员查看导师对某序列的最新回应
func (s *ReviewService) LatestResponse(ctx context.Context, userID, moduleID, sequenceID string) (*model.InstructorResponse, error) {
	resp, err := s.ResponseRepo.Latest(ctx, userID, moduleID, sequenceID)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, util.ErrResponseNotFound
	}
	return resp, nil
}
