package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alt-text-ai-api/internal/domain/entity"
)

// OptionRepository 设置仓储
type OptionRepository struct {
	client *Client
}

// NewOptionRepository 创建设置仓储
func NewOptionRepository(client *Client) *OptionRepository {
	return &OptionRepository{client: client}
}

// Get 读取设置
func (r *OptionRepository) Get(ctx context.Context, name string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "postgres.OptionRepository.Get")
	defer span.End()

	var opt entity.Option
	if err := r.client.db.WithContext(ctx).First(&opt, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return opt.Value, nil
}

// Put 写入或覆盖设置
func (r *OptionRepository) Put(ctx context.Context, name string, value json.RawMessage) error {
	ctx, span := tracer.Start(ctx, "postgres.OptionRepository.Put")
	defer span.End()

	opt := entity.Option{Name: name, Value: value}
	err := r.client.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&opt).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to put option %s: %w", name, err)
	}
	return nil
}
