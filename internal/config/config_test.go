package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Success: Defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		for _, key := range []string{"REDIS_HOST", "PORT", "STORAGE", "ACCESS_TOKEN_TTL", "SCHEDULER_RESYNC", "SCHEDULER_TIMEZONE"} {
			t.Setenv(key, "")
		}

		cfg, err := Load("does-not-exist.env")

		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, StoragePostgres, cfg.Storage)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
		assert.Equal(t, time.Minute, cfg.Scheduler.Resync)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, time.UTC, cfg.Location())
	})

	t.Run("Success: Overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("STORAGE", "Memory")
		t.Setenv("REDIS_HOST", "cache")
		t.Setenv("SCHEDULER_TIMEZONE", "Europe/Moscow")
		t.Setenv("ACCESS_TOKEN_TTL", "1h")
		t.Setenv("DB_USER", "u")
		t.Setenv("DB_PASSWORD", "p")
		t.Setenv("DB_NAME", "n")

		cfg, err := Load("does-not-exist.env")

		require.NoError(t, err)
		assert.Equal(t, StorageMemory, cfg.Storage)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
		assert.Equal(t, "Europe/Moscow", cfg.Location().String())
		assert.Equal(t, "postgres://u:p@localhost:5432/n?sslmode=disable", cfg.DB.DSN())
	})

	t.Run("Error: Every problem is reported", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("STORAGE", "sqlite")
		t.Setenv("SCHEDULER_RESYNC", "soon")

		_, err := Load("does-not-exist.env")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET is required")
		assert.Contains(t, err.Error(), "STORAGE")
		assert.Contains(t, err.Error(), "SCHEDULER_RESYNC")
	})
}
