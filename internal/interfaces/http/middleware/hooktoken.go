package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"alt-text-ai-api/internal/interfaces/http/dto"
	apperrors "alt-text-ai-api/pkg/errors"
)

// HookTokenHeader webhook 共享密钥请求头
const HookTokenHeader = "X-Hook-Token"

// HookToken 校验宿主 webhook 的共享密钥
// 未配置密钥时拒绝所有请求
func HookToken(secret string) gin.HandlerFunc {
	expected := []byte(secret)

	return func(c *gin.Context) {
		got := []byte(c.GetHeader(HookTokenHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			dto.AbortWithError(c, apperrors.New(apperrors.CodeUnauthorized, "invalid hook token"))
			return
		}
		c.Next()
	}
}
