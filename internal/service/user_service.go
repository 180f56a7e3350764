package service

import (
	"context"
	"strings"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/util"
	"yoi_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// SetApprovalRequest 管理员审批学员
type SetApprovalRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Approved *bool  `json:"approved" binding:"required"`
}

// UpdateProfileRequest 个人资料修改，未提供的字段保持不变
type UpdateProfileRequest struct {
	FullName *string `json:"full_name" form:"full_name" binding:"omitempty,max=255"`
	Bio      *string `json:"bio" form:"bio" binding:"omitempty,max=2000"`
}

// UserService 处理用户相关的业务逻辑
type UserService struct {
	UserRepo *repository.UserRepository
	Uploads  *UploadService
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(userRepo *repository.UserRepository, uploads *UploadService) *UserService {
	return &UserService{UserRepo: userRepo, Uploads: uploads}
}

// GetProfile 当前用户资料
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, util.ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile 修改姓名、简介和头像，avatar 为 nil 时不修改头像
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest, avatar *MediaUpload) (*model.User, error) {
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Bio != nil {
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if len(updates) == 0 && avatar == nil {
		return nil, util.ErrMissingFields
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, util.ErrUserNotFound
	}

	var stored *StoredMedia
	if avatar != nil {
		stored, err = s.Uploads.SaveAvatar(ctx, userID, *avatar)
		if err != nil {
			return nil, err
		}
		updates["avatar_url"] = stored.URL
	}

	if err := s.UserRepo.UpdateProfile(ctx, userID, updates); err != nil {
		if stored != nil {
			if delErr := s.Uploads.Storage.Delete(ctx, stored.Key); delErr != nil {
				logger.Log.Warn("Failed to remove orphaned avatar", zap.String("key", stored.Key), zap.Error(delErr))
			}
		}
		return nil, err
	}
	logger.Log.Info("Profile updated",
		zap.String("user_id", userID),
		zap.Bool("avatar", stored != nil))
	return s.GetProfile(ctx, userID)
}

// ListUsers approved 为 nil 时返回全部
func (s *UserService) ListUsers(ctx context.Context, approved *bool) ([]model.User, error) {
	return s.UserRepo.List(ctx, approved)
}

// SetApproval 修改审批状态，adminID 仅用于日志
func (s *UserService) SetApproval(ctx context.Context, adminID, userID string, approved bool) error {
	if userID == "" {
		return util.ErrMissingFields
	}
	found, err := s.UserRepo.SetApproved(ctx, userID, approved)
	if err != nil {
		return err
	}
	if !found {
		user, err := s.UserRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return util.ErrUserNotFound
		}
	}
	logger.Log.Info("User approval updated",
		zap.String("admin_id", adminID),
		zap.String("user_id", userID),
		zap.Bool("approved", approved))
	return nil
}
