package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"alt-text-ai-api/internal/domain/entity"
)

// AttachmentRepository 附件仓储
type AttachmentRepository struct {
	client *Client
}

// NewAttachmentRepository 创建附件仓储
func NewAttachmentRepository(client *Client) *AttachmentRepository {
	return &AttachmentRepository{client: client}
}

// GetByID 根据 ID 获取附件
func (r *AttachmentRepository) GetByID(ctx context.Context, id uint64) (*entity.Attachment, error) {
	ctx, span := tracer.Start(ctx, "postgres.AttachmentRepository.GetByID",
		trace.WithAttributes(attribute.Int64("attachment.id", int64(id))))
	defer span.End()

	var att entity.Attachment
	if err := r.client.db.WithContext(ctx).First(&att, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &att, nil
}

// UpdateAltText 覆盖 alt text 与生成标签
func (r *AttachmentRepository) UpdateAltText(ctx context.Context, id uint64, altText string, labels []string) error {
	ctx, span := tracer.Start(ctx, "postgres.AttachmentRepository.UpdateAltText",
		trace.WithAttributes(attribute.Int64("attachment.id", int64(id))))
	defer span.End()

	result := r.client.db.WithContext(ctx).
		Model(&entity.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"alt_text":         altText,
			"alt_text_source":  entity.AltTextSourceGenerated,
			"generated_labels": pq.StringArray(labels),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update alt text: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("attachment %d not found", id)
	}
	return nil
}
