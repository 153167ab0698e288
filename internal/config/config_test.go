package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE_TYPE", "minio")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, DefaultDummyKeywords, cfg.Notifications.DummyKeywords)
	assert.Equal(t, 10*time.Minute, cfg.Notifications.GenerateInterval)
	assert.Equal(t, 50, cfg.Notifications.GenerateLimit)
	assert.Equal(t, "minio", cfg.Storage.Type)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
server:
  port: "9090"
  mode: debug
jwt:
  secret: file-secret
  expire_hours: 24
notifications:
  dummy_keywords: ["qa only"]
  generate_interval: 30s
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("STORAGE_TYPE", "minio")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, []string{"qa only"}, cfg.Notifications.DummyKeywords)
	assert.Equal(t, 30*time.Second, cfg.Notifications.GenerateInterval)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=7070\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SERVER_PORT") })
	t.Setenv("STORAGE_TYPE", "minio")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Mode: "release"}, JWT: JWTConfig{Secret: "short"}}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultDummyKeywords, cfg.Notifications.DummyKeywords)

	cfg.Notifications.GenerateLimit = -1
	assert.Error(t, cfg.Validate())
}
