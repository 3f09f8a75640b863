package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load looks at so tests do not depend on the host.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envPrefix+"CONFIG", "")
	for _, names := range legacyEnv {
		for _, n := range names {
			t.Setenv(n, "")
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, ":5000", cfg.Relay.Addr)
	assert.Equal(t, "avatars", cfg.S3.Bucket)
	assert.Equal(t, ScoreModeLabeled, cfg.Wingman.ScoreMode)
	assert.Equal(t, "gemini-2.5-flash", cfg.Wingman.Model)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINKVIBEZ_HTTP__ADDR", ":9999")
	t.Setenv("LINKVIBEZ_HTTP__READ_TIMEOUT", "45s")
	t.Setenv("LINKVIBEZ_WINGMAN__SCORE_MODE", ScoreModeFirstInteger)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 45*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, ScoreModeFirstInteger, cfg.Wingman.ScoreMode)
	// untouched keys keep their defaults
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Run("legacy names fill unset keys", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
		t.Setenv("VITE_GEMINI_API_KEY", "vite-key")
		t.Setenv("GEMINI_MODEL", "gemini-test")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@db:5432/x", cfg.Postgres.DSN)
		assert.Equal(t, "vite-key", cfg.Wingman.APIKey)
		assert.Equal(t, "gemini-test", cfg.Wingman.Model)
	})

	t.Run("GEMINI_API_KEY wins over VITE_GEMINI_API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "server-key")
		t.Setenv("VITE_GEMINI_API_KEY", "vite-key")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "server-key", cfg.Wingman.APIKey)
	})

	t.Run("prefixed keys win over legacy names", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "legacy")
		t.Setenv("LINKVIBEZ_WINGMAN__API_KEY", "prefixed")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "prefixed", cfg.Wingman.APIKey)
	})
}

func TestGeminiModelReadAtCallTime(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel())

	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel())
	assert.Equal(t, "gemini-2.5-flash", cfg.Wingman.Model)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: production
http:
  addr: ":7070"
s3:
  bucket: photos
cors:
  allowed_origins:
    - https://linkvibez.example
`), 0o600))
	t.Setenv("LINKVIBEZ_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "photos", cfg.S3.Bucket)
	assert.Equal(t, []string{"https://linkvibez.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LINKVIBEZ_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.ErrorIs(t, err, ErrLoadConfig)
	})

	t.Run("invalid score mode", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LINKVIBEZ_WINGMAN__SCORE_MODE", "vibes")
		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestGeminiAPIKeyFallsBackAtCallTime(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	assert.Empty(t, cfg.GeminiAPIKey())

	t.Setenv("GEMINI_API_KEY", "late-key")
	assert.Equal(t, "late-key", cfg.GeminiAPIKey())
}
