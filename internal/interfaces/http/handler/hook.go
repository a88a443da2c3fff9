package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"alt-text-ai-api/internal/interfaces/http/dto"
	apperrors "alt-text-ai-api/pkg/errors"
	"alt-text-ai-api/pkg/logger"
)

// AttachmentPublisher 发布新增附件事件
type AttachmentPublisher interface {
	PublishAttachmentAdded(ctx context.Context, attachmentID uint64, requestID string) (string, error)
}

// HookHandler 宿主事件 webhook 处理器
type HookHandler struct {
	publisher AttachmentPublisher
}

// NewHookHandler 创建 webhook 处理器
func NewHookHandler(publisher AttachmentPublisher) *HookHandler {
	return &HookHandler{publisher: publisher}
}

// AttachmentAdded 接收新增附件事件并投递到事件流
// @Summary 新增附件事件
// @Tags Hooks
// @Accept json
// @Produce json
// @Param X-Hook-Token header string true "共享密钥"
// @Param body body dto.AttachmentHookRequest true "附件"
// @Success 202 {object} dto.Response[dto.AttachmentHookResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/hooks/attachments [post]
func (h *HookHandler) AttachmentAdded(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AttachmentHookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	streamID, err := h.publisher.PublishAttachmentAdded(ctx, req.AttachmentID, c.GetString("request_id"))
	if err != nil {
		logger.Error(ctx, "failed to publish attachment event", err, "attachment_id", req.AttachmentID)
		dto.FromError(c, apperrors.Wrap(err, apperrors.CodeMessagingError, "failed to enqueue attachment event"))
		return
	}

	dto.Accepted(c, dto.AttachmentHookResponse{
		AttachmentID:    req.AttachmentID,
		StreamMessageID: streamID,
	})
}
