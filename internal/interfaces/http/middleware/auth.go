// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"alt-text-ai-api/internal/interfaces/http/dto"
	apperrors "alt-text-ai-api/pkg/errors"
	"alt-text-ai-api/pkg/logger"
	"alt-text-ai-api/pkg/utils"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret 宿主平台签发 Token 使用的密钥
	Secret string
	// Issuer 期望的签发者，为空时不校验
	Issuer string
	// Enabled 是否启用认证
	Enabled bool
}

// Auth 校验宿主平台签发的管理员 Token
// 仅挂在需要认证的路由组上，不做路径跳过
func Auth(cfg AuthConfig) gin.HandlerFunc {
	verifier := utils.NewJWTVerifier(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		// 提取 Bearer Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			dto.AbortWithError(c, apperrors.New(apperrors.CodeTokenMissing, "missing authorization header"))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			dto.AbortWithError(c, apperrors.New(apperrors.CodeTokenInvalid, "invalid authorization format"))
			return
		}

		// 校验签名、签发者与有效期
		claims, err := verifier.Parse(token)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				dto.AbortWithError(c, apperrors.Wrap(err, apperrors.CodeTokenExpired, "token expired"))
				return
			}
			dto.AbortWithError(c, apperrors.Wrap(err, apperrors.CodeTokenInvalid, "invalid token"))
			return
		}

		// 设置到 Gin Context
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		// 设置到 Logger Context
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole 要求当前用户具备指定角色
// 认证关闭时不做限制
func RequireRole(enabled bool, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		if c.GetString("role") != role {
			dto.AbortWithError(c, apperrors.New(apperrors.CodePermissionDenied, "insufficient permissions"))
			return
		}
		c.Next()
	}
}
