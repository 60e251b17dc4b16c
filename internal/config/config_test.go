package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "9090"
  default_user_id: 7
postgres:
  url: postgres://file
redis:
  addr: localhost:6379
  ttl: 5m
catalog:
  ttl: 1m
engine:
  xp_per_correct: 20
  practice_batch_size: 3
log:
  mode: dev
`)
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_MODE", "")
	t.Setenv("DEFAULT_USER_ID", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, int64(7), cfg.Server.DefaultUserID)
	assert.Equal(t, "postgres://file", cfg.Postgres.URL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, int64(20), cfg.Engine.XPPerCorrect)
	assert.Equal(t, 3, cfg.Engine.PracticeBatchSize)
	assert.Equal(t, "dev", cfg.Log.Mode)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "postgres:\n  url: postgres://file\n")
	t.Setenv("PORT", "7000")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_MODE", "dev")
	t.Setenv("DEFAULT_USER_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "postgres://env", cfg.Postgres.URL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "dev", cfg.Log.Mode)
	assert.Equal(t, int64(42), cfg.Server.DefaultUserID)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_MODE", "")
	t.Setenv("DEFAULT_USER_ID", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(1), cfg.Server.DefaultUserID)
	assert.Equal(t, "prod", cfg.Log.Mode)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "server: [")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := writeFile(t, ".env", "DATABASE_URL=postgres://dotenv\nREDIS_ADDR=dotenv:6379\n")
	t.Setenv("DATABASE_URL", "postgres://set")
	t.Setenv("REDIS_ADDR", "")
	os.Unsetenv("REDIS_ADDR")

	LoadDotEnv(path)
	assert.Equal(t, "postgres://set", os.Getenv("DATABASE_URL"))
	assert.Equal(t, "dotenv:6379", os.Getenv("REDIS_ADDR"))
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, TTLDuration("5m", time.Second))
	assert.Equal(t, time.Second, TTLDuration("", time.Second))
	assert.Equal(t, time.Second, TTLDuration("soon", time.Second))
}
