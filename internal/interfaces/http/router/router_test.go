package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alt-text-ai-api/internal/application/settings"
	"alt-text-ai-api/internal/config"
	"alt-text-ai-api/internal/infrastructure/credential"
	"alt-text-ai-api/internal/interfaces/http/handler"
	"alt-text-ai-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noOptions struct{}

func (noOptions) Get(context.Context, string) (json.RawMessage, error) { return nil, nil }
func (noOptions) Put(context.Context, string, json.RawMessage) error  { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishAttachmentAdded(context.Context, uint64, string) (string, error) {
	return "1-0", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Name = "alt-text-ai-api"
	cfg.Server.HTTP.MaxUploadBytes = 1 << 20
	cfg.Security.JWT = config.JWTConfig{Enabled: true, Secret: "k", Issuer: "cms-host", AdminRole: "admin"}
	cfg.Hooks.Secret = "hook-secret"
	cfg.Observability.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}

	manager := settings.NewManager(credential.NewStore(afero.NewMemMapFs(), "cred/c.json"), noOptions{})
	r := New(cfg, Handlers{
		Health:   handler.NewHealthHandler("test", nil),
		Settings: handler.NewSettingsHandler(manager, cfg.Server.HTTP.MaxUploadBytes),
		Notices:  handler.NewNoticeHandler(),
		Hooks:    handler.NewHookHandler(nopPublisher{}),
	}, manager, nil)
	return r.Engine(), cfg
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	engine, cfg := newTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.NewJWTVerifier(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).Sign("u-1", "admin", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/notices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), settings.PagePath)
}

func TestHookRouteRequiresToken(t *testing.T) {
	engine, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/hooks/attachments", strings.NewReader(`{"attachment_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/hooks/attachments", strings.NewReader(`{"attachment_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hook-Token", "hook-secret")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSystemRoutes(t *testing.T) {
	engine, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
