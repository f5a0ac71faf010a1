package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "beer-clicker-save", cfg.Storage.SlotKey)
	assert.Equal(t, time.Second, cfg.Engine.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Engine.AutosaveInterval)
	require.NoError(t, cfg.Validate())
}

func TestLowResourceIsValid(t *testing.T) {
	cfg := LowResource()
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beer.yaml")
	yamlDoc := `
server:
  addr: ":9090"
storage:
  driver: redis
  redis_addr: "cache:6379"
  slot_key: "slot-a"
engine:
  tick_interval: 500ms
  autosave_interval: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("BEER_SLOT_KEY", "slot-b")
	t.Setenv("BEER_AUTOSAVE_INTERVAL", "5s")
	t.Setenv("BEER_ALLOWED_ORIGINS", "http://localhost:5173, https://beer.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, "slot-b", cfg.Storage.SlotKey)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.Engine.AutosaveInterval)
	assert.Equal(t, []string{"http://localhost:5173", "https://beer.example"}, cfg.Server.AllowedOrigins)
	// Untouched sections keep their defaults.
	assert.Equal(t, 256, cfg.Network.ClientSendBuffer)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("BEER_STORAGE_DRIVER", "memory")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("BEER_STORAGE_DRIVER", "mongo")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("BEER_STORAGE_DRIVER", "postgres")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("BEER_TICK_INTERVAL", "soon")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("bad int", func(t *testing.T) {
		t.Setenv("BEER_REDIS_DB", "zero")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateZeroInterval(t *testing.T) {
	cfg := Default()
	cfg.Engine.TickInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestTournamentEnv(t *testing.T) {
	t.Setenv("BEER_STORAGE_DRIVER", "memory")
	t.Setenv("BEER_TOURNAMENT_ADMINS", "42, 7")
	t.Setenv("BEER_STARTING_ATTEMPTS", "5")
	t.Setenv("BEER_TOURNAMENT_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 7}, cfg.Tournament.AdminIDs)
	assert.Equal(t, 5, cfg.Tournament.StartingAttempts)
	assert.Equal(t, 10, cfg.Tournament.LeaderboardSize)
	assert.False(t, cfg.Tournament.Enabled)

	t.Setenv("BEER_TOURNAMENT_ADMINS", "42,bob")
	_, err = Load("")
	assert.Error(t, err)
}
