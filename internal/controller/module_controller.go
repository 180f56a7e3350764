package controller

import (
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ModuleController struct {
	ProgressService *service.ProgressService
	ReviewService   *service.ReviewService
	UploadService   *service.UploadService
}

func NewModuleController(progress *service.ProgressService, review *service.ReviewService, uploads *service.UploadService) *ModuleController {
	return &ModuleController{
		ProgressService: progress,
		ReviewService:   review,
		UploadService:   uploads,
	}
}

// ListModules godoc
// @Summary 学员仪表盘
// @Description 已发布模块及其汇总进度，按模块顺序排列
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.ModuleSummary}
// @Failure 401 {object} util.Response
// @Router /api/modules [get]
func (c *ModuleController) ListModules(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summaries, err := c.ProgressService.Dashboard(ctx.Request.Context(), user.UserID())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summaries)
}

// GetModule godoc
// @Summary 模块详情
// @Description 模块内每个序列的有效状态
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.ModuleProgress}
// @Failure 404 {object} util.Response
// @Router /api/modules/{id} [get]
func (c *ModuleController) GetModule(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressService.ModuleProgress(ctx.Request.Context(), user.UserID(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// CompleteSequence godoc
// @Summary 完成序列
// @Description 标记无需审核的序列为完成，并解锁下一个序列
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path string true "模块ID"
// @Param seqId path string true "序列ID"
// @Success 200 {object} util.Response{data=service.ModuleProgress}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/modules/{id}/sequences/{seqId}/complete [post]
func (c *ModuleController) CompleteSequence(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressService.CompleteSequence(ctx.Request.Context(), user.UserID(), ctx.Param("id"), ctx.Param("seqId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// SubmitVideo godoc
// @Summary 上传作业视频
// @Description 上传需导师审核的视频，序列进入等待审核状态
// @Tags 学习进度
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "模块ID"
// @Param seqId path string true "序列ID"
// @Param file formData file true "视频文件"
// @Param duration_seconds formData int false "客户端读取的视频时长（秒）"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Failure 413 {object} util.Response
// @Router /api/modules/{id}/sequences/{seqId}/submissions [post]
func (c *ModuleController) SubmitVideo(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	header, file, err := readUpload(ctx, c.UploadService.MaxBytes(service.UploadAssignment))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	defer file.Close()

	result, err := c.ProgressService.SubmitVideo(ctx.Request.Context(), user.UserID(), ctx.Param("id"), ctx.Param("seqId"), mediaUpload(ctx, header, file))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetResponse godoc
// @Summary 导师回应
// @Description 学员在该序列上收到的最新导师回应
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path string true "模块ID"
// @Param seqId path string true "序列ID"
// @Success 200 {object} util.Response{data=model.InstructorResponse}
// @Failure 404 {object} util.Response
// @Router /api/modules/{id}/sequences/{seqId}/response [get]
func (c *ModuleController) GetResponse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resp, err := c.ReviewService.LatestResponse(ctx.Request.Context(), user.UserID(), ctx.Param("id"), ctx.Param("seqId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}
