package app

import (
	"errors"
	"yoi_portal_backend/internal/service"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const submissionFilterTag = "submission_filter"

// registerValidators 注册 gin 绑定使用的自定义校验规则
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return v.RegisterValidation(submissionFilterTag, func(fl validator.FieldLevel) bool {
		_, ok := service.ParseSubmissionFilter(fl.Field().String())
		return ok
	})
}
