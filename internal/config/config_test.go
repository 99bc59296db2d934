package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SURVEY_SERVER_MODE", "debug")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 30, cfg.Server.SubmitPerMinute)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, "surveydb", cfg.Mongo.Database)
	assert.Equal(t, 5*time.Minute, cfg.Redis.AnalyticsTTL)
	assert.False(t, cfg.AI.IsEnabled())
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash"}, cfg.AI.Models())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  mode: debug
  port: "9090"
mongo:
  uri: memory://
redis:
  addr: redis://cache:6379
ai:
  primary_model: gemini-pro
  fallback_model: gemini-pro
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PORT", "7070")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.True(t, cfg.Mongo.InMemory())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.True(t, cfg.AI.IsEnabled())
	assert.Equal(t, []string{"gemini-pro"}, cfg.AI.Models())
}

func TestLoadRejectsWeakSecretInRelease(t *testing.T) {
	t.Setenv("SURVEY_SERVER_MODE", "release")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
