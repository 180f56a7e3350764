package controller

import (
	"errors"
	"path/filepath"
	"strings"
	"yoi_portal_backend/internal/middleware"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService   *service.UserService
	AccessService *service.AccessService
	UploadService *service.UploadService
	Gate          middleware.GatePrefixes
	WebRoot       string
}

func NewUserController(users *service.UserService, access *service.AccessService, uploads *service.UploadService, gate middleware.GatePrefixes, webRoot string) *UserController {
	return &UserController{
		UserService:   users,
		AccessService: access,
		UploadService: uploads,
		Gate:          gate,
		WebRoot:       webRoot,
	}
}

// GetProfile godoc
// @Summary 当前用户资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response
// @Router /api/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.UserService.GetProfile(ctx.Request.Context(), user.UserID())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// UpdateProfile godoc
// @Summary 修改个人资料
// @Description 接受 JSON 或 multipart 表单，multipart 表单可附带 avatar 头像图片
// @Tags 用户
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param full_name formData string false "姓名"
// @Param bio formData string false "简介"
// @Param avatar formData file false "头像图片"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response
// @Failure 413 {object} util.Response
// @Router /api/profile [patch]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateProfileRequest
	var avatar *service.MediaUpload
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		header, file, err := readFormFile(ctx, "avatar", c.UploadService.MaxBytes(service.UploadAvatar))
		switch {
		case err == nil:
			defer file.Close()
			media := mediaUpload(ctx, header, file)
			avatar = &media
		case !errors.Is(err, util.ErrMissingFields):
			util.HandleError(ctx, err)
			return
		}
		if err := ctx.ShouldBind(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.UserService.UpdateProfile(ctx.Request.Context(), user.UserID(), req, avatar)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// RouteAccess godoc
// @Summary 页面访问检查
// @Description 返回访问指定页面路径时需要跳转的位置，redirect 为空表示允许访问
// @Tags 用户
// @Produce json
// @Param path query string true "页面路径"
// @Success 200 {object} util.Response
// @Router /api/access/route [get]
func (c *UserController) RouteAccess(ctx *gin.Context) {
	path := ctx.Query("path")
	if path == "" {
		util.BadRequest(ctx, util.ErrMissingFields.Error())
		return
	}

	redirect, err := c.Gate.Resolve(ctx, c.AccessService, path)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"path":     path,
		"allowed":  redirect == "",
		"redirect": redirect,
	})
}

// Page 访问控制通过后返回前端入口页面
func (c *UserController) Page(ctx *gin.Context) {
	if c.WebRoot != "" {
		ctx.File(filepath.Join(c.WebRoot, "index.html"))
		return
	}
	util.Success(ctx, gin.H{"path": ctx.Request.URL.Path})
}
