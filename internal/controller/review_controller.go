package controller

import (
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
	UploadService *service.UploadService
}

func NewReviewController(review *service.ReviewService, uploads *service.UploadService) *ReviewController {
	return &ReviewController{ReviewService: review, UploadService: uploads}
}

// UnlockRequest 与 service.ReviewInput 字段一致
type UnlockRequest = service.ReviewInput

// Unlock godoc
// @Summary 导师审核并解锁下一序列
// @Description 写入导师回应，提交标记为已审核，序列完成并解锁下一个序列。重复审核同一提交不会产生新的回应
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UnlockRequest true "审核内容"
// @Success 200 {object} util.Response{data=service.ReviewResult}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /api/admin/unlock [post]
func (c *ReviewController) Unlock(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req UnlockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.InstructorID == "" {
		req.InstructorID = user.UserID()
	}
	if req.InstructorID != user.UserID() {
		util.Forbidden(ctx)
		return
	}

	result, err := c.ReviewService.Review(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// Reject godoc
// @Summary 退回提交
// @Description 待审核的提交被退回，学员可以重新上传
// @Tags 管理后台
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Param body body RejectRequest false "退回原因"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/admin/submissions/{id}/reject [post]
func (c *ReviewController) Reject(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RejectRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	err := c.ReviewService.Reject(ctx.Request.Context(), service.RejectInput{
		SubmissionID: ctx.Param("id"),
		InstructorID: user.UserID(),
		Reason:       req.Reason,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"success": true})
}

// UploadResponse godoc
// @Summary 上传导师回应媒体
// @Description 上传回应视频或音频，返回可用于审核接口的地址
// @Tags 管理后台
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "回应视频或音频"
// @Param user_id formData string true "学员ID"
// @Param module_id formData string true "模块ID"
// @Param sequence_id formData string true "序列ID"
// @Success 200 {object} util.Response{data=service.StoredMedia}
// @Failure 400 {object} util.Response
// @Failure 413 {object} util.Response
// @Router /api/admin/uploads/response [post]
func (c *ReviewController) UploadResponse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	header, file, err := readUpload(ctx, c.UploadService.MaxBytes(service.UploadResponse))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	defer file.Close()

	userID, moduleID, sequenceID := ctx.PostForm("user_id"), ctx.PostForm("module_id"), ctx.PostForm("sequence_id")
	if userID == "" || moduleID == "" || sequenceID == "" {
		util.HandleError(ctx, util.ErrMissingFields)
		return
	}

	media, err := c.UploadService.SaveResponse(ctx.Request.Context(), user.UserID(), userID, moduleID, sequenceID, mediaUpload(ctx, header, file))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, media)
}
