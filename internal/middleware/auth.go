package middleware

import (
	"errors"
	"strings"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/internal/util"
	"yoi_portal_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// tokenFromRequest 优先读取 Authorization 头，其次读取认证平台写入的 cookie
func tokenFromRequest(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
			return strings.TrimSpace(token)
		}
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil {
			return token
		}
	}
	return ""
}

func authenticate(c *gin.Context, cfg *config.JWTConfig) (*util.Claims, error) {
	tokenString := tokenFromRequest(c, cfg.Cookie)
	if tokenString == "" {
		return nil, util.ErrUnauthenticated
	}
	return util.ParseJWT(tokenString, cfg.Secret, cfg.Issuer)
}

// AuthMiddleware API 路由的认证，失败时返回 401
func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, cfg)
		if err != nil {
			logger.Log.Debug("JWT rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

// OptionalAuth 令牌有效时写入上下文，无效时继续处理
func OptionalAuth(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := authenticate(c, cfg); err == nil {
			c.Set(util.ContextUserKey, claims)
		}
		c.Next()
	}
}

// loadIdentity 每个请求从数据库读取一次角色和审批状态
func loadIdentity(c *gin.Context, access *service.AccessService) (*service.Identity, error) {
	if v, ok := c.Get(identityKey); ok {
		return v.(*service.Identity), nil
	}
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil, util.ErrUnauthenticated
	}
	identity, err := access.Lookup(c.Request.Context(), claims.UserID())
	if err != nil {
		return nil, err
	}
	c.Set(identityKey, identity)
	return identity, nil
}

// GetIdentity 读取本次请求已加载的身份
func GetIdentity(c *gin.Context) *service.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(*service.Identity); ok {
			return identity
		}
	}
	return nil
}

func abortWithIdentityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUnauthenticated):
		util.Unauthorized(c)
	case errors.Is(err, util.ErrUserNotFound):
		util.Forbidden(c)
	default:
		util.LogInternalError(c, err)
	}
	c.Abort()
}

// RequireApproved 未审批的学员不能访问学习接口
func RequireApproved(access *service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := loadIdentity(c, access)
		if err != nil {
			abortWithIdentityError(c, err)
			return
		}
		if identity.NeedsApproval() {
			util.Error(c, util.StatusOf(util.ErrNotApproved), util.ErrNotApproved.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}

// ReviewerOnly 重新读取存储的角色，只允许管理员和导师
func ReviewerOnly(access *service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := loadIdentity(c, access)
		if err != nil {
			abortWithIdentityError(c, err)
			return
		}
		if !identity.CanReview() {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
