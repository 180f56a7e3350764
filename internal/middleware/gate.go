package middleware

import (
	"errors"
	"net/http"
	"strings"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// GatePrefixes 页面访问控制的路径前缀
type GatePrefixes struct {
	Protected []string
	Admin     []string
}

var DefaultGatePrefixes = GatePrefixes{
	Protected: []string{"/dashboard", "/module", "/profile"},
	Admin:     []string{"/admin"},
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Decide 返回需要跳转的路径，空字符串表示放行；identity 为 nil 表示未登录
func (g GatePrefixes) Decide(path string, identity *service.Identity) string {
	isAdmin := hasPrefix(path, g.Admin)
	isProtected := isAdmin || hasPrefix(path, g.Protected)

	if path == util.PendingApprovalPath {
		if identity != nil && !identity.NeedsApproval() {
			return util.DashboardPath
		}
		return ""
	}
	if !isProtected {
		return ""
	}
	if identity == nil {
		return util.LoginPath
	}
	if identity.NeedsApproval() {
		return util.PendingApprovalPath
	}
	if isAdmin && !identity.CanReview() {
		return util.DashboardPath
	}
	return ""
}

// Resolve 加载当前请求的身份并计算跳转
func (g GatePrefixes) Resolve(c *gin.Context, access *service.AccessService, path string) (string, error) {
	identity, err := loadIdentity(c, access)
	switch {
	case errors.Is(err, util.ErrUnauthenticated), errors.Is(err, util.ErrUserNotFound):
		identity = nil
	case err != nil:
		return "", err
	}
	return g.Decide(path, identity), nil
}

// AccessGate 页面路由的访问控制，需要在 OptionalAuth 之后使用
func AccessGate(access *service.AccessService, prefixes GatePrefixes) gin.HandlerFunc {
	return func(c *gin.Context) {
		redirect, err := prefixes.Resolve(c, access, c.Request.URL.Path)
		if err != nil {
			util.LogInternalError(c, err)
			c.Abort()
			return
		}
		if redirect != "" {
			c.Redirect(http.StatusFound, redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}
