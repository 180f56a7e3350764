package controller

import (
	"strconv"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	AdminService *service.AdminService
	UserService  *service.UserService
}

func NewAdminController(admin *service.AdminService, users *service.UserService) *AdminController {
	return &AdminController{AdminService: admin, UserService: users}
}

// Stats godoc
// @Summary 后台统计
// @Description 学员数、待审核与已审核提交数
// @Tags 管理后台
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.DashboardStats}
// @Router /api/admin/stats [get]
func (c *AdminController) Stats(ctx *gin.Context) {
	stats, err := c.AdminService.Stats(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

type SubmissionQuery struct {
	Status string `form:"status" binding:"omitempty,submission_filter"`
}

// ListSubmissions godoc
// @Summary 提交列表
// @Description 按状态筛选的视频提交，附带学员、模块和序列名称
// @Tags 管理后台
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending | reviewed | rejected | all"
// @Success 200 {object} util.Response{data=[]service.SubmissionRow}
// @Failure 400 {object} util.Response
// @Router /api/admin/submissions [get]
func (c *AdminController) ListSubmissions(ctx *gin.Context) {
	var q SubmissionQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if q.Status == "" {
		q.Status = "pending"
	}
	status, ok := service.ParseSubmissionFilter(q.Status)
	if !ok {
		util.BadRequest(ctx, "invalid status filter")
		return
	}

	rows, err := c.AdminService.ListSubmissions(ctx.Request.Context(), status)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// UserSubmissions godoc
// @Summary 学员的提交记录
// @Tags 管理后台
// @Produce json
// @Security BearerAuth
// @Param id path string true "学员ID"
// @Success 200 {object} util.Response{data=[]service.SubmissionRow}
// @Router /api/admin/users/{id}/submissions [get]
func (c *AdminController) UserSubmissions(ctx *gin.Context) {
	rows, err := c.AdminService.ListUserSubmissions(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// ListUsers godoc
// @Summary 用户列表
// @Tags 管理后台
// @Produce json
// @Security BearerAuth
// @Param approved query bool false "按审批状态筛选"
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/admin/users [get]
func (c *AdminController) ListUsers(ctx *gin.Context) {
	var approved *bool
	if raw := ctx.Query("approved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			util.BadRequest(ctx, "approved must be true or false")
			return
		}
		approved = &v
	}

	users, err := c.UserService.ListUsers(ctx.Request.Context(), approved)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// SetApproval godoc
// @Summary 审批学员
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.SetApprovalRequest true "审批内容"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/users [patch]
func (c *AdminController) SetApproval(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SetApprovalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.ErrMissingFields.Error())
		return
	}

	if err := c.UserService.SetApproval(ctx.Request.Context(), user.UserID(), req.UserID, *req.Approved); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"success": true})
}
