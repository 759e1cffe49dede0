package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Empty(t, cfg.Providers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AUTHHUB_ADDR", ":8081")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/authhub")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("GITHUB_REDIRECT_URI", "http://localhost:3000/auth/github/callback")

	cfg := FromEnv()
	assert.Equal(t, ":8081", cfg.Addr)
	assert.Equal(t, "postgres", cfg.StorageBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Contains(t, cfg.Providers, "github")
	assert.NotContains(t, cfg.Providers, "google")
}

func TestProviderRequiresAllFields(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	// redirect URI missing

	cfg := FromEnv()
	assert.NotContains(t, cfg.Providers, "google")
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	cfg := FromEnv()
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}
