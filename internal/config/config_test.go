package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so Load does not pick
// up a config.yaml from the repository root.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.MinConns)
	assert.Equal(t, "verticals.yaml", cfg.Verticals.ConfigPath)
	assert.Equal(t, 5000, cfg.Indexation.QueueMaxSize)
	assert.Equal(t, 2, cfg.Indexation.Workers)
	assert.Equal(t, 200, cfg.Indexation.BulkPageSize)
	assert.Equal(t, 2, cfg.Indexation.PauseSecs)
	assert.Equal(t, 3, cfg.Indexation.Retry.MaxAttempts)
	assert.Equal(t, 250, cfg.Indexation.Retry.InitialBackoffMs)
	assert.Equal(t, 5, cfg.Indexation.Breaker.FailureThreshold)
	assert.Equal(t, 30, cfg.Indexation.Breaker.ResetTimeoutSecs)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.InDelta(t, 0.8, cfg.Monitoring.QueueSaturationThreshold, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: catalog.db
indexation:
  workers: 4
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "catalog.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 4, cfg.Indexation.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Values absent from the file keep their defaults.
	assert.Equal(t, 200, cfg.Indexation.BulkPageSize)
	assert.Equal(t, 5000, cfg.Indexation.QueueMaxSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)

	t.Setenv("CATALOG_STORE_DRIVER", "sqlite")
	t.Setenv("CATALOG_STORE_DATABASE_URL", "/tmp/catalog.db")
	t.Setenv("CATALOG_SERVER_PORT", "3000")
	t.Setenv("CATALOG_INDEXATION_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/catalog.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Indexation.Workers)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:     StoreConfig{Driver: "postgres", DatabaseURL: "postgres://localhost/catalog"},
			Verticals: VerticalsConfig{ConfigPath: "verticals.yaml"},
			Server:    ServerConfig{Port: 8080},
		}
	}

	t.Run("valid serve config", func(t *testing.T) {
		assert.NoError(t, base().Validate("serve"))
	})

	t.Run("postgres requires database url", func(t *testing.T) {
		cfg := base()
		cfg.Store.DatabaseURL = ""
		err := cfg.Validate("batch")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store.database_url")
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Store.Driver = "oracle"
		err := cfg.Validate("batch")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store.driver")
	})

	t.Run("serve requires port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		err := cfg.Validate("serve")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port")
	})

	t.Run("batch does not require port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.NoError(t, cfg.Validate("batch"))
	})

	t.Run("missing verticals path", func(t *testing.T) {
		cfg := base()
		cfg.Verticals.ConfigPath = ""
		err := cfg.Validate("import")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verticals.config_path")
	})

	t.Run("worker bounds", func(t *testing.T) {
		cfg := base()
		cfg.Indexation.Workers = 100
		err := cfg.Validate("batch")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "indexation.workers")
	})

	t.Run("unknown mode", func(t *testing.T) {
		err := base().Validate("replicate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mode")
	})
}

func TestInitLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	})

	t.Run("console", func(t *testing.T) {
		assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	})

	t.Run("invalid level", func(t *testing.T) {
		assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
	})
}
