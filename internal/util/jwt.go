package util

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims 外部认证平台签发的访问令牌，Subject 即用户 ID
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

// ParseJWT 校验 HS256 签名，issuer 为空时不校验签发方
func ParseJWT(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrUnauthenticated
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, errors.New("token has no subject"))
	}
	return claims, nil
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
