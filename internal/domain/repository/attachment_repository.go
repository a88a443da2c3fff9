// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"alt-text-ai-api/internal/domain/entity"
)

// AttachmentRepository 宿主附件存储
type AttachmentRepository interface {
	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id uint64) (*entity.Attachment, error)
	// UpdateAltText 覆盖 alt text，来源记为 generated
	UpdateAltText(ctx context.Context, id uint64, altText string, labels []string) error
}
