package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("ALT_TEXT_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnv("host: ${ALT_TEXT_TEST_HOST}"))
	assert.Equal(t, "port: 5433", expandEnv("port: ${ALT_TEXT_TEST_UNSET:5433}"))
	assert.Equal(t, "x: ${ALT_TEXT_TEST_UNSET}", expandEnv("x: ${ALT_TEXT_TEST_UNSET}"))
}

func TestLoadFromMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("ALT_TEXT_TEST_SECRET", "s3cret")

	writeFile(t, dir, "config.yaml", `
app:
  name: alt-text-ai-api
credentials:
  path: /var/lib/alt-text/cred.json
security:
  jwt:
    secret: ${ALT_TEXT_TEST_SECRET}
alt_text:
  threshold: 0.8
`)
	writeFile(t, dir, "config.staging.yaml", `
alt_text:
  preserve_manual: true
server:
  http:
    port: 9090
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/alt-text/cred.json", cfg.Credentials.Path)
	assert.Equal(t, "s3cret", cfg.Security.JWT.Secret)
	assert.True(t, cfg.AltText.PreserveManual)
	assert.InDelta(t, 0.8, cfg.AltText.Threshold, 1e-9)
	assert.Equal(t, 9090, cfg.Server.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.HTTP.ReadTimeout)
	assert.Equal(t, "stream:attachment:added", cfg.Messaging.RedisStream.Stream)
	assert.Equal(t, "admin", cfg.Security.JWT.AdminRole)
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Credentials: CredentialsConfig{Path: "cred.json"},
		AltText:     AltTextConfig{Threshold: 0.8},
	}
	require.NoError(t, cfg.Validate())

	cfg.AltText.Threshold = 1.2
	assert.Error(t, cfg.Validate())

	cfg.AltText.Threshold = 0.8
	cfg.Security.JWT.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Security.JWT.Secret = "change-me"
	assert.ErrorContains(t, cfg.Validate(), "placeholder")

	cfg.Security.JWT.Secret = "  "
	assert.Error(t, cfg.Validate())

	cfg.Security.JWT.Secret = "9f1c2d7e-host-issued"
	assert.NoError(t, cfg.Validate())
}

func TestShippedConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("ADMIN_JWT_SECRET"))

	_, err := LoadFrom(filepath.Join("..", "..", DefaultDir))
	assert.ErrorContains(t, err, "security.jwt.secret")

	t.Setenv("ADMIN_JWT_SECRET", "9f1c2d7e-host-issued")
	cfg, err := LoadFrom(filepath.Join("..", "..", DefaultDir))
	require.NoError(t, err)
	assert.Equal(t, "9f1c2d7e-host-issued", cfg.Security.JWT.Secret)
}
