package service

import (
	"context"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/util"
)

// Identity 当前请求用户的角色与审批状态，每次请求都从数据库读取
type Identity struct {
	UserID   string         `json:"userId"`
	Email    string         `json:"email"`
	Role     model.UserRole `json:"role"`
	Approved bool           `json:"approved"`
}

// NeedsApproval 只有学员需要等待审批
func (i *Identity) NeedsApproval() bool {
	return i.Role == model.Student && !i.Approved
}

func (i *Identity) CanReview() bool {
	return i.Role.CanReview()
}

type AccessService struct {
	UserRepo *repository.UserRepository
}

func NewAccessService(userRepo *repository.UserRepository) *AccessService {
	return &AccessService{UserRepo: userRepo}
}

// Lookup 用户不存在时返回 ErrUserNotFound
func (s *AccessService) Lookup(ctx context.Context, userID string) (*Identity, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, util.ErrUserNotFound
	}
	return &Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Approved: user.Approved,
	}, nil
}

// RequireReviewer 重新读取存储的角色，非管理员或导师返回 ErrPermissionDenied
func (s *AccessService) RequireReviewer(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, util.ErrPermissionDenied
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Role.CanReview() {
		return nil, util.ErrPermissionDenied
	}
	return user, nil
}
