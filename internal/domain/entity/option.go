package entity

import (
	"encoding/json"
	"time"
)

// AltTextOptionName 设置记录的选项名
const AltTextOptionName = "alt_text_options"

// Option 宿主平台的键值设置记录
type Option struct {
	Name      string          `json:"name" gorm:"primaryKey;type:varchar(191)"`
	Value     json.RawMessage `json:"value" gorm:"type:jsonb;not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Option) TableName() string {
	return "options"
}
