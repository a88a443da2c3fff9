package middleware

import (
	"github.com/gin-gonic/gin"

	"alt-text-ai-api/internal/application/settings"
)

// NoticeKey 后台提示在 gin.Context 中的键
const NoticeKey = "admin_notice"

// NoticeSource 提供当前的后台提示
type NoticeSource interface {
	StatusNotice() *settings.Notice
}

// AdminNotice 在每个后台请求上注入未激活提示
func AdminNotice(src NoticeSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n := src.StatusNotice(); n != nil {
			c.Set(NoticeKey, n)
		}
		c.Next()
	}
}

// NoticeFrom 取出已注入的提示，没有时为 nil
func NoticeFrom(c *gin.Context) *settings.Notice {
	v, ok := c.Get(NoticeKey)
	if !ok {
		return nil
	}
	n, _ := v.(*settings.Notice)
	return n
}
