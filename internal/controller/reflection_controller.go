package controller

import (
	"strings"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReflectionController struct {
	ReflectionService *service.ReflectionService
	UploadService     *service.UploadService
}

func NewReflectionController(s *service.ReflectionService, uploads *service.UploadService) *ReflectionController {
	return &ReflectionController{ReflectionService: s, UploadService: uploads}
}

// SaveVoiceReflection godoc
// @Summary 上传语音反思
// @Tags 反思
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "音频文件"
// @Param duration_seconds formData int true "录音时长（秒）"
// @Param module_id formData string false "模块ID"
// @Param sequence_id formData string false "序列ID"
// @Param transcript formData string false "文字稿"
// @Param tags formData string false "逗号分隔的标签"
// @Success 200 {object} util.Response{data=model.VoiceReflection}
// @Failure 400 {object} util.Response
// @Router /api/reflections/voice [post]
func (c *ReflectionController) SaveVoiceReflection(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	header, file, err := readUpload(ctx, c.UploadService.MaxBytes(service.UploadVoice))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	defer file.Close()

	var tags []string
	for _, t := range strings.Split(ctx.PostForm("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	reflection, err := c.ReflectionService.SaveVoiceReflection(ctx.Request.Context(), user.UserID(), service.VoiceReflectionInput{
		ModuleID:   ctx.PostForm("module_id"),
		SequenceID: ctx.PostForm("sequence_id"),
		Transcript: ctx.PostForm("transcript"),
		Tags:       tags,
		Media:      mediaUpload(ctx, header, file),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reflection)
}

// ListVoiceReflections godoc
// @Summary 我的语音反思
// @Tags 反思
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.VoiceReflection}
// @Router /api/reflections/voice [get]
func (c *ReflectionController) ListVoiceReflections(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.ReflectionService.ListVoiceReflections(ctx.Request.Context(), user.UserID(), 50)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
