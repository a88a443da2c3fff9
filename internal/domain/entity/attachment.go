package entity

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// AltTextSource alt text 来源
type AltTextSource string

const (
	AltTextSourceNone      AltTextSource = ""
	AltTextSourceManual    AltTextSource = "manual"
	AltTextSourceGenerated AltTextSource = "generated"
)

// Attachment 宿主平台的附件记录（图片记录）
type Attachment struct {
	ID              uint64         `json:"id" gorm:"primaryKey"`
	FilePath        string         `json:"file_path" gorm:"type:text;not null"`
	MimeType        string         `json:"mime_type" gorm:"type:varchar(127)"`
	AltText         string         `json:"alt_text" gorm:"type:text"`
	AltTextSource   AltTextSource  `json:"alt_text_source" gorm:"type:varchar(16)"`
	GeneratedLabels pq.StringArray `json:"generated_labels,omitempty" gorm:"type:text[]"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Attachment) TableName() string {
	return "attachments"
}

// HasDeclaredImageType 宿主记录的 MIME 类型是否为图片
func (a *Attachment) HasDeclaredImageType() bool {
	return strings.HasPrefix(strings.ToLower(a.MimeType), "image/")
}

// HasManualAltText 是否为人工填写的 alt text
func (a *Attachment) HasManualAltText() bool {
	return a.AltTextSource == AltTextSourceManual && strings.TrimSpace(a.AltText) != ""
}
