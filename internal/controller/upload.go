package controller

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// multipartSlack 表单字段的额外空间
const multipartSlack = 1 << 20

// readUpload 限制请求体大小并取出 file 字段
func readUpload(ctx *gin.Context, limit int64) (*multipart.FileHeader, multipart.File, error) {
	return readFormFile(ctx, "file", limit)
}

// readFormFile 字段缺失时返回 ErrMissingFields
func readFormFile(ctx *gin.Context, field string, limit int64) (*multipart.FileHeader, multipart.File, error) {
	if limit > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit+multipartSlack)
	}
	header, err := ctx.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, util.ErrFileTooLarge
		}
		return nil, nil, util.ErrMissingFields
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return header, file, nil
}

func mediaUpload(ctx *gin.Context, header *multipart.FileHeader, file multipart.File) service.MediaUpload {
	seconds, _ := strconv.Atoi(ctx.PostForm("duration_seconds"))
	return service.MediaUpload{
		Filename:        header.Filename,
		Size:            header.Size,
		Reader:          file,
		ReportedSeconds: seconds,
	}
}
