package repository

import (
	"context"
	"encoding/json"
)

// OptionRepository 宿主设置存储
type OptionRepository interface {
	// Get 不存在时返回 nil, nil
	Get(ctx context.Context, name string) (json.RawMessage, error)
	Put(ctx context.Context, name string, value json.RawMessage) error
}
