package controller

import (
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GoalController struct {
	GoalService *service.GoalService
}

func NewGoalController(s *service.GoalService) *GoalController {
	return &GoalController{GoalService: s}
}

// ListGoals godoc
// @Summary 我的目标
// @Description 进行中和已完成的目标
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.UserGoal}
// @Router /api/goals [get]
func (c *GoalController) ListGoals(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	goals, err := c.GoalService.ListGoals(ctx.Request.Context(), user.UserID())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, goals)
}

// SetGoals godoc
// @Summary 提交目标设定
// @Description 保存三条目标（目标日期为 28 天后）并完成目标设定序列
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.SetGoalsRequest true "三条目标"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/goals [post]
func (c *GoalController) SetGoals(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SetGoalsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	goals, progress, err := c.GoalService.SetGoals(ctx.Request.Context(), user.UserID(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"goals":    goals,
		"progress": progress,
	})
}

// UpdateGoal godoc
// @Summary 更新目标状态
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "目标ID"
// @Param body body service.UpdateGoalRequest true "新状态"
// @Success 200 {object} util.Response{data=model.UserGoal}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/goals/{id} [patch]
func (c *GoalController) UpdateGoal(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateGoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	goal, err := c.GoalService.UpdateGoal(ctx.Request.Context(), user.UserID(), ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, goal)
}
