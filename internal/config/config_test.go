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
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "turns", cfg.QueueCollection)
	assert.Equal(t, "tickets", cfg.QueueDocument)
	assert.Equal(t, "history", cfg.HistoryDocument)
	assert.Equal(t, "earnings", cfg.RevenueCollection)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 600, cfg.SessionRateLimitPerMinute)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DB_DSN", "postgres://localhost/barberq")
	t.Setenv("SESSION_TTL_SECONDS", "600")
	t.Setenv("TIMEZONE", "America/Bogota")
	t.Setenv("ADMIN_PIN", " 4321 ")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "America/Bogota", cfg.Location.String())
	assert.Equal(t, "4321", cfg.AdminPIN)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barberq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"7070\"\nREVENUE_COLLECTION: ganancias\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "ganancias", cfg.RevenueCollection)
}

func TestLoadValidation(t *testing.T) {
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "postgres")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("firestore without project", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "firestore")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "mongo")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
