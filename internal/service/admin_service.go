package service

import (
	"context"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
)

// DashboardStats 管理后台统计
type DashboardStats struct {
	Students int64 `json:"students"`
	Pending  int64 `json:"pending"`
	Reviewed int64 `json:"reviewed"`
}

// SubmissionRow 带学员和内容名称的提交记录
type SubmissionRow struct {
	model.VideoSubmission
	UserName      string `json:"userName"`
	UserEmail     string `json:"userEmail"`
	UserAvatar    string `json:"userAvatar"`
	ModuleTitle   string `json:"moduleTitle"`
	SequenceTitle string `json:"sequenceTitle"`
}

type AdminService struct {
	UserRepo       *repository.UserRepository
	ModuleRepo     *repository.ModuleRepository
	SequenceRepo   *repository.SequenceRepository
	SubmissionRepo *repository.SubmissionRepository
}

func NewAdminService(
	userRepo *repository.UserRepository,
	moduleRepo *repository.ModuleRepository,
	sequenceRepo *repository.SequenceRepository,
	submissionRepo *repository.SubmissionRepository,
) *AdminService {
	return &AdminService{
		UserRepo:       userRepo,
		ModuleRepo:     moduleRepo,
		SequenceRepo:   sequenceRepo,
		SubmissionRepo: submissionRepo,
	}
}

func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	students, err := s.UserRepo.CountByRole(ctx, model.Student)
	if err != nil {
		return nil, err
	}
	pending, err := s.SubmissionRepo.CountByStatus(ctx, model.SubmissionPending)
	if err != nil {
		return nil, err
	}
	reviewed, err := s.SubmissionRepo.CountByStatus(ctx, model.SubmissionReviewed)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{Students: students, Pending: pending, Reviewed: reviewed}, nil
}

// ParseSubmissionFilter all 或空值表示不过滤
func ParseSubmissionFilter(filter string) (model.SubmissionStatus, bool) {
	switch filter {
	case "", "all":
		return "", true
	case string(model.SubmissionPending), string(model.SubmissionReviewed), string(model.SubmissionRejected):
		return model.SubmissionStatus(filter), true
	}
	return "", false
}

// ListSubmissions 按状态筛选并补充名称
func (s *AdminService) ListSubmissions(ctx context.Context, status model.SubmissionStatus) ([]SubmissionRow, error) {
	subs, err := s.SubmissionRepo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, subs)
}

func (s *AdminService) ListUserSubmissions(ctx context.Context, userID string) ([]SubmissionRow, error) {
	subs, err := s.SubmissionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, subs)
}

func (s *AdminService) enrich(ctx context.Context, subs []model.VideoSubmission) ([]SubmissionRow, error) {
	userIDs := make([]string, 0, len(subs))
	moduleIDs := make([]string, 0, len(subs))
	sequenceIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		userIDs = append(userIDs, sub.UserID)
		moduleIDs = append(moduleIDs, sub.ModuleID)
		sequenceIDs = append(sequenceIDs, sub.SequenceID)
	}

	users, err := s.UserRepo.ByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	modules, err := s.ModuleRepo.TitlesByIDs(ctx, moduleIDs)
	if err != nil {
		return nil, err
	}
	sequences, err := s.SequenceRepo.TitlesByIDs(ctx, sequenceIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]SubmissionRow, 0, len(subs))
	for _, sub := range subs {
		row := SubmissionRow{
			VideoSubmission: sub,
			UserName:        "Unknown",
			ModuleTitle:     unknownModule,
			SequenceTitle:   "Unknown Sequence",
		}
		if u, ok := users[sub.UserID]; ok {
			if u.FullName != "" {
				row.UserName = u.FullName
			}
			row.UserEmail = u.Email
			row.UserAvatar = u.AvatarURL
		}
		if t, ok := modules[sub.ModuleID]; ok {
			row.ModuleTitle = t
		}
		if t, ok := sequences[sub.SequenceID]; ok {
			row.SequenceTitle = t
		}
		rows = append(rows, row)
	}
	return rows, nil
}
