// Package handler 提供 HTTP 请求处理器
package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gin-gonic/gin/render"

	"alt-text-ai-api/internal/application/settings"
	"alt-text-ai-api/internal/interfaces/http/dto"
	apperrors "alt-text-ai-api/pkg/errors"
	"alt-text-ai-api/pkg/logger"
)

// CredentialField 凭证文件表单字段
const CredentialField = "credentials_json"

//go:embed templates/*.html
var templatesFS embed.FS

var settingsTemplate = template.Must(template.ParseFS(templatesFS, "templates/settings.html"))

// SettingsHandler 设置页处理器
type SettingsHandler struct {
	manager        *settings.Manager
	maxUploadBytes int64
}

// NewSettingsHandler 创建设置页处理器
func NewSettingsHandler(manager *settings.Manager, maxUploadBytes int64) *SettingsHandler {
	return &SettingsHandler{manager: manager, maxUploadBytes: maxUploadBytes}
}

// Page 渲染设置页
// @Summary 设置页
// @Tags Admin
// @Produce html
// @Success 200 {string} string "HTML"
// @Router /admin/settings [get]
func (h *SettingsHandler) Page(c *gin.Context) {
	h.render(c, http.StatusOK, nil, "")
}

// Save 处理凭证上传与设置保存
// 上传失败在页面内提示，仍返回 200
// @Summary 保存设置
// @Tags Admin
// @Accept multipart/form-data
// @Produce html
// @Success 200 {string} string "HTML"
// @Router /admin/settings [post]
func (h *SettingsHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	var form dto.SettingsForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		// 超出上传大小按上传失败处理，在页面内提示
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn(ctx, "credential upload too large", "limit", tooLarge.Limit)
			h.render(c, http.StatusOK, &dto.UploadStatus{Message: settings.UploadErrorMessage}, "")
			return
		}
		logger.Warn(ctx, "invalid settings form", "error", err)
		h.render(c, http.StatusBadRequest, nil, "invalid form: "+err.Error())
		return
	}

	upload := h.handleUpload(c)

	var saveErr string
	if input := form.Input(); len(input) > 0 {
		if _, err := h.manager.SaveSettings(ctx, input); err != nil {
			logger.Error(ctx, "failed to save settings", err)
			saveErr = "Settings could not be saved."
		}
	}

	h.render(c, http.StatusOK, upload, saveErr)
}

// handleUpload 未附带文件时返回 nil
func (h *SettingsHandler) handleUpload(c *gin.Context) *dto.UploadStatus {
	fh, err := c.FormFile(CredentialField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		logger.Warn(c.Request.Context(), "failed to read uploaded file", "error", err)
		return &dto.UploadStatus{Message: settings.UploadErrorMessage}
	}

	if err := h.manager.HandleUpload(c.Request.Context(), fh); err != nil {
		return &dto.UploadStatus{Message: apperrors.AsAppError(err).Message}
	}
	return &dto.UploadStatus{OK: true, Message: "Credential file uploaded."}
}

func (h *SettingsHandler) render(c *gin.Context, status int, upload *dto.UploadStatus, errMsg string) {
	ctx := c.Request.Context()
	page := dto.SettingsPage{
		Notice: h.manager.StatusNotice(),
		Upload: upload,
		Error:  errMsg,
	}

	summary, err := h.manager.CredentialSummary()
	if err != nil {
		logger.Error(ctx, "failed to read credential summary", err)
	}
	page.Credential = summary

	values, err := h.manager.Settings(ctx)
	if err != nil {
		logger.Error(ctx, "failed to load settings", err)
	}
	if v, ok := values[settings.FieldIDNumber]; ok {
		page.IDNumber = fmt.Sprint(v)
	}
	if v, ok := values[settings.FieldTitle]; ok {
		page.Title = fmt.Sprint(v)
	}

	c.Render(status, render.HTML{Template: settingsTemplate, Name: "settings.html", Data: page})
}
