package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_ENV", "DB_URI", "DB_NAME", "DB_CONNECT_TIMEOUT", "CHAT_BASE_URL",
	"TELEGRAM_API_ENDPOINT", "HTTP_ADDR", "JWT_SECRET", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "MAX_BODY_BYTES", "LOG_LEVEL",
}

// clearEnv unsets every key for the duration of the test; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, DefaultDatabaseName, cfg.Database.Name)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "http://localhost:3000", cfg.Chat.BaseURL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	assert.Equal(t, 5.0, cfg.HTTP.RateLimit)
	assert.Equal(t, 10, cfg.HTTP.RateBurst)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env.test")
	content := "DB_URI=postgres://chat:secret@db:5432\nDB_CONNECT_TIMEOUT=3s\nCHAT_BASE_URL=http://chat:3000\nRATE_LIMIT_BURST=2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://chat:secret@db:5432", cfg.Database.URI)
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "http://chat:3000", cfg.Chat.BaseURL)
	assert.Equal(t, 2, cfg.HTTP.RateBurst)
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_BASE_URL", "http://override:3000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHAT_BASE_URL=http://file:3000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://override:3000", cfg.Chat.BaseURL)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DB_CONNECT_TIMEOUT", "soon"},
		{"RATE_LIMIT_RPS", "fast"},
		{"RATE_LIMIT_BURST", "many"},
		{"MAX_BODY_BYTES", "1MB"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestDefaultFiles(t *testing.T) {
	assert.Equal(t, []string{".env"}, defaultFiles(""))
	assert.Equal(t, []string{".env.production", ".env"}, defaultFiles("production"))
}
