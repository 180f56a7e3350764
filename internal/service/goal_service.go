package service

import (
	"context"
	"strings"
	"time"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/util"
)

const (
	// GoalCount 目标设定表单固定填写三条
	GoalCount = 3
	// goalHorizon 目标日期为提交后 28 天
	goalHorizon = 28 * 24 * time.Hour
)

// GoalInput 目标与第一步行动
type GoalInput struct {
	GoalText    string `json:"goal_text" binding:"required"`
	SmallAction string `json:"small_action" binding:"required"`
}

// SetGoalsRequest 目标设定序列提交的表单
type SetGoalsRequest struct {
	ModuleID   string      `json:"module_id" binding:"required"`
	SequenceID string      `json:"sequence_id" binding:"required"`
	Goals      []GoalInput `json:"goals" binding:"required,len=3,dive"`
}

// UpdateGoalRequest 切换完成状态或放弃目标
type UpdateGoalRequest struct {
	Status        model.GoalStatus `json:"status" binding:"required,oneof=active completed abandoned"`
	ProgressNotes *string          `json:"progress_notes"`
}

type GoalService struct {
	GoalRepo *repository.GoalRepository
	Progress *ProgressService
	now      func() time.Time
}

func NewGoalService(goalRepo *repository.GoalRepository, progress *ProgressService) *GoalService {
	return &GoalService{
		GoalRepo: goalRepo,
		Progress: progress,
		now:      time.Now,
	}
}

// SetGoals 保存三条目标并完成目标设定序列，已完成的序列不再接受新目标
func (s *GoalService) SetGoals(ctx context.Context, userID string, req SetGoalsRequest) ([]model.UserGoal, *ModuleProgress, error) {
	if len(req.Goals) != GoalCount {
		return nil, nil, util.ErrMissingFields
	}
	seq, status, err := s.Progress.SequenceStatus(ctx, userID, req.ModuleID, req.SequenceID)
	if err != nil {
		return nil, nil, err
	}
	if seq.SequenceType != model.SequenceGoalSetting {
		return nil, nil, util.ErrWrongSequenceType
	}
	// 目标写入前先确认序列可以由学员完成，避免留下孤立或重复的目标
	if seq.Gated() {
		return nil, nil, util.ErrSequenceGated
	}
	switch status {
	case model.StatusLocked:
		return nil, nil, util.ErrSequenceLocked
	case model.StatusCompleted:
		return nil, nil, util.ErrSequenceAlreadyCompleted
	}

	target := s.now().Add(goalHorizon).Truncate(24 * time.Hour)
	goals := make([]model.UserGoal, 0, len(req.Goals))
	for _, g := range req.Goals {
		text, action := strings.TrimSpace(g.GoalText), strings.TrimSpace(g.SmallAction)
		if text == "" || action == "" {
			return nil, nil, util.ErrMissingFields
		}
		goals = append(goals, model.UserGoal{
			UserID:      userID,
			GoalText:    text,
			SmallAction: action,
			TargetDate:  target,
			Status:      model.GoalActive,
		})
	}

	if err := s.GoalRepo.CreateBatch(ctx, goals); err != nil {
		return nil, nil, err
	}
	progress, err := s.Progress.CompleteSequence(ctx, userID, req.ModuleID, req.SequenceID)
	if err != nil {
		return goals, nil, err
	}
	return goals, progress, nil
}

// ListGoals 进行中和已完成的目标
func (s *GoalService) ListGoals(ctx context.Context, userID string) ([]model.UserGoal, error) {
	goals, err := s.GoalRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible := goals[:0]
	for _, g := range goals {
		if g.Status != model.GoalAbandoned {
			visible = append(visible, g)
		}
	}
	return visible, nil
}

// UpdateGoal 只能修改自己的目标
func (s *GoalService) UpdateGoal(ctx context.Context, userID, goalID string, req UpdateGoalRequest) (*model.UserGoal, error) {
	goal, err := s.GoalRepo.FindByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, util.ErrGoalNotFound
	}
	if goal.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if err := s.GoalRepo.UpdateStatus(ctx, goalID, req.Status, req.ProgressNotes); err != nil {
		return nil, err
	}
	goal.Status = req.Status
	if req.ProgressNotes != nil {
		goal.ProgressNotes = *req.ProgressNotes
	}
	return goal, nil
}
