package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment can't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "DB_PATH", "LOG_LEVEL", "BCRYPT_COST",
		"SESSION_SECRET", "SESSION_TTL", "SESSION_SECURE",
		"SEED_ENABLED", "SEED_USERNAME", "SEED_PASSWORD",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
		"EXECUTOR_ENABLED", "EXECUTOR_IMAGE", "EXECUTOR_TIMEOUT", "EXECUTOR_POOL_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, devSessionSecret, cfg.Session.Secret)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Session.Secure)
	assert.True(t, cfg.Seed.Enabled, "seeding is on outside production")
	assert.False(t, cfg.GitHubEnabled())
	assert.False(t, cfg.Executor.Enabled)
	assert.Equal(t, "node:22-alpine", cfg.Executor.Image)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET is required")
}

func TestLoad_ProductionDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "a-very-long-production-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Seed.Enabled, "seeding is off in production by default")
	assert.True(t, cfg.Session.Secure)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SEED_ENABLED", "false")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("EXECUTOR_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Seed.Enabled)
	assert.True(t, cfg.GitHubEnabled())
	assert.True(t, cfg.Executor.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value, wantErr string
	}{
		{"bad port", "PORT", "eighty", "PORT"},
		{"port out of range", "PORT", "70000", "out of range"},
		{"bad bool", "SEED_ENABLED", "maybe", "SEED_ENABLED"},
		{"bad duration", "SESSION_TTL", "forever", "SESSION_TTL"},
		{"short secret", "SESSION_SECRET", "short", "at least 16"},
		{"bcrypt cost too low", "BCRYPT_COST", "2", "BCRYPT_COST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
