package handler

import (
	"github.com/gin-gonic/gin"

	"alt-text-ai-api/internal/application/settings"
	"alt-text-ai-api/internal/interfaces/http/dto"
	"alt-text-ai-api/internal/interfaces/http/middleware"
)

// NoticeHandler 后台提示处理器
type NoticeHandler struct{}

// NewNoticeHandler 创建后台提示处理器
func NewNoticeHandler() *NoticeHandler {
	return &NoticeHandler{}
}

// List 返回当前后台提示，由 AdminNotice 中间件注入
// @Summary 后台提示
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.Response[[]settings.Notice]
// @Router /admin/notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	notices := make([]*settings.Notice, 0, 1)
	if n := middleware.NoticeFrom(c); n != nil {
		notices = append(notices, n)
	}
	dto.Success(c, notices)
}
