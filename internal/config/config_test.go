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
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: postgres
jwt:
  secret: from-file
storage:
  type: local
  local_path: `+uploads+`
upload:
  default_min_seconds: 30
  default_max_seconds: 90
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("NOTIFICATION_WEBHOOK_URL", "https://hooks.example.com/progress")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "access_token", cfg.JWT.Cookie)
	assert.Equal(t, "https://hooks.example.com/progress", cfg.Notification.WebhookURL)
	assert.Equal(t, 5*time.Second, cfg.Notification.WebhookTimeout)
	assert.Equal(t, 30, cfg.Upload.DefaultMinSeconds)
	assert.Equal(t, 90, cfg.Upload.DefaultMaxSeconds)
	assert.EqualValues(t, 100<<20, cfg.Upload.MaxAssignmentBytes)
	assert.EqualValues(t, 5<<20, cfg.Upload.MaxAvatarBytes)
	assert.Equal(t, 48*time.Hour, cfg.Scheduler.StaleAfter)

	assert.DirExists(t, uploads)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "release"},
			Database: DatabaseConfig{Driver: "mysql"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Upload:   UploadConfig{DefaultMinSeconds: 60, DefaultMaxSeconds: 120},
		}
	}
	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.JWT.Secret = "short"
	assert.ErrorContains(t, cfg.Validate(), "JWT secret is too short")

	// 调试模式不校验密钥长度
	cfg.Server.Mode = "debug"
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Database.Driver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "unsupported database driver")

	cfg = valid()
	cfg.Upload.DefaultMinSeconds = 200
	assert.ErrorContains(t, cfg.Validate(), "default_min_seconds")
}
