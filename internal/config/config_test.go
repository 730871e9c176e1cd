package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	// 屏蔽宿主环境变量
	for _, key := range []string{"PORT", "SERVER_MODE", "JWT_SECRET", "JWT_EXPIRE_HOURS", "DATABASE_DRIVER", "RATE_LIMIT_MAX"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "8080"
  mode: debug
jwt:
  secret: dev
  expire_hours: 2
mail:
  reset_ttl_minutes: 15
cors:
  allowed_origins:
    - http://localhost:3000
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 15*time.Minute, cfg.Mail.ResetTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)

	// 未配置的项使用默认值
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.ReconcileSpec)
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.False(t, cfg.MigrateOnly)
}

func TestLoadConfig_ReleaseRequiresStrongSecret(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
