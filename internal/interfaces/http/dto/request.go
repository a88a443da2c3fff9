package dto

import (
	"alt-text-ai-api/internal/application/settings"
	"alt-text-ai-api/internal/infrastructure/credential"
)

// AttachmentHookRequest 宿主新增附件 webhook 请求
type AttachmentHookRequest struct {
	AttachmentID uint64 `json:"attachment_id" binding:"required,gt=0"`
}

// AttachmentHookResponse webhook 响应
type AttachmentHookResponse struct {
	AttachmentID    uint64 `json:"attachment_id"`
	StreamMessageID string `json:"stream_message_id"`
}

// SettingsForm 设置页表单的文本字段，文件字段单独读取
type SettingsForm struct {
	IDNumber *string `form:"id_number" binding:"omitempty,max=32"`
	Title    *string `form:"title" binding:"omitempty,max=1024"`
}

// Input 仅包含表单中实际出现的字段
func (f SettingsForm) Input() map[string]string {
	in := map[string]string{}
	if f.IDNumber != nil {
		in["id_number"] = *f.IDNumber
	}
	if f.Title != nil {
		in["title"] = *f.Title
	}
	return in
}

// UploadStatus 设置页上的上传结果
type UploadStatus struct {
	OK      bool
	Message string
}

// SettingsPage 设置页渲染数据
type SettingsPage struct {
	Notice     *settings.Notice
	Upload     *UploadStatus
	Credential *credential.Summary
	IDNumber   string
	Title      string
	Error      string
}
