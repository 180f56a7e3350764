package controller

import (
	"strconv"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(s *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: s}
}

// List godoc
// @Summary 后台通知列表
// @Tags 通知
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "只看未读"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/notifications [get]
func (c *NotificationController) List(ctx *gin.Context) {
	unread, _ := strconv.ParseBool(ctx.Query("unread"))
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	list, total, err := c.NotificationService.ListForAdmin(ctx.Request.Context(), unread, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  list,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// MarkRead godoc
// @Summary 标记通知已读
// @Tags 通知
// @Produce json
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	found, err := c.NotificationService.MarkRead(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if !found {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, gin.H{"success": true})
}
