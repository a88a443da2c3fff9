// Package settings 管理凭证上传、激活提示与设置记录
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"

	"alt-text-ai-api/internal/domain/entity"
	"alt-text-ai-api/internal/domain/repository"
	"alt-text-ai-api/internal/infrastructure/credential"
	apperrors "alt-text-ai-api/pkg/errors"
	"alt-text-ai-api/pkg/logger"
	"alt-text-ai-api/pkg/metrics"
)

// CredentialContentType 唯一接受的凭证上传类型
const CredentialContentType = "application/json"

// PagePath 设置页地址
const PagePath = "/admin/settings"

// NoticeMessage 未激活提示文案，设置页链接由页面单独渲染
const NoticeMessage = "Alt Text Generator is not fully activated. Please check its config:"

// UploadErrorMessage 凭证上传失败时的页面提示
const UploadErrorMessage = "Sorry, there was an error uploading your file."

// CredentialStore 凭证文件存储
type CredentialStore interface {
	Exists() bool
	Write(r io.Reader) error
	Summary() (*credential.Summary, error)
}

// Notice 后台提示
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Manager 设置管理
type Manager struct {
	store   CredentialStore
	options repository.OptionRepository
}

// NewManager 创建设置管理
func NewManager(store CredentialStore, options repository.OptionRepository) *Manager {
	return &Manager{store: store, options: options}
}

// HandleUpload 校验并保存上传的凭证文件
// 声明类型不是 application/json 时拒绝，已有文件保持不变
func (m *Manager) HandleUpload(ctx context.Context, fh *multipart.FileHeader) error {
	if fh == nil {
		return apperrors.New(apperrors.CodeInvalidParam, "no credential file uploaded")
	}

	declared := fh.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || mediaType != CredentialContentType {
		metrics.CredentialUploadTotal.WithLabelValues("rejected").Inc()
		logger.Warn(ctx, "credential upload rejected", "content_type", declared, "filename", fh.Filename)
		return apperrors.New(apperrors.CodeUnsupportedCredential, "credential file must be application/json").
			WithDetail(fmt.Sprintf("got %q", declared))
	}

	f, err := fh.Open()
	if err != nil {
		metrics.CredentialUploadTotal.WithLabelValues("failed").Inc()
		return apperrors.Wrap(err, apperrors.CodeCredentialWriteFailed, UploadErrorMessage)
	}
	defer f.Close()

	if err := m.store.Write(f); err != nil {
		metrics.CredentialUploadTotal.WithLabelValues("failed").Inc()
		logger.Error(ctx, "failed to store credential file", err)
		return apperrors.Wrap(err, apperrors.CodeCredentialWriteFailed, UploadErrorMessage)
	}

	metrics.CredentialUploadTotal.WithLabelValues("ok").Inc()
	logger.Info(ctx, "credential file uploaded", "filename", fh.Filename, "size", fh.Size)
	return nil
}

// StatusNotice 凭证文件不存在时返回未激活提示
func (m *Manager) StatusNotice() *Notice {
	if m.store.Exists() {
		return nil
	}
	return &Notice{Level: "warning", Message: NoticeMessage, Link: PagePath}
}

// CredentialSummary 凭证摘要，文件不存在时返回 nil, nil
func (m *Manager) CredentialSummary() (*credential.Summary, error) {
	if !m.store.Exists() {
		return nil, nil
	}
	return m.store.Summary()
}

// SaveSettings 清洗并保存设置记录
func (m *Manager) SaveSettings(ctx context.Context, input map[string]string) (map[string]any, error) {
	clean := Sanitize(input)

	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to encode settings")
	}
	if err := m.options.Put(ctx, entity.AltTextOptionName, raw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save settings")
	}
	return clean, nil
}

// Settings 读取设置记录，不存在时为空
func (m *Manager) Settings(ctx context.Context) (map[string]any, error) {
	raw, err := m.options.Get(ctx, entity.AltTextOptionName)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load settings")
	}
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to decode settings")
	}
	return out, nil
}
