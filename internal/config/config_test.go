package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binforge/internal/models"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	configContent := `
server:
  port: 9191
  host: "localhost"
  read_timeout: 15s
  write_timeout: 15s
  idle_timeout: 45s
  tls_enabled: false
  cors:
    enabled: true
    allowed_origins: ["https://example.com"]
    allowed_methods: ["GET", "POST"]
    allowed_headers: ["Content-Type"]
    max_age: 3600

storage:
  type: "sqlite"
  database:
    dsn: "./data/binforge.db"

security:
  enable_auth: true
  bootstrap_key: "bfk_bootstrap"
  tiers:
    free:
      per_minute: 5
      per_day: 50
  rate_limit:
    enabled: true
    requests_per_minute: 100
    burst_size: 10
    cleanup_interval: 300s

generator:
  max_attempts: 100
  max_digit_repeat: 2
  max_cards_per_request: 25

providers:
  bin_dataset:
    enabled: true
    url: "https://bins.example.com"
    rate: 0.16
    timeout: 5s

logging:
  level: "debug"
  format: "json"
  output: "stdout"

metrics:
  enabled: true
  path: "/metrics"
  port: 9090
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 9191, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 15*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, []string{"https://example.com"}, config.Server.CORS.AllowedOrigins)

	assert.Equal(t, models.StorageTypeSQLite, config.Storage.Type)
	assert.Equal(t, "./data/binforge.db", config.Storage.Database.DSN)

	assert.True(t, config.Security.EnableAuth)
	assert.Equal(t, "bfk_bootstrap", config.Security.BootstrapKey)
	assert.Equal(t, models.TierLimits{PerMinute: 5, PerDay: 50}, config.Security.Tiers[models.TierFree])

	assert.Equal(t, 25, config.Generator.MaxCardsPerRequest)

	assert.True(t, config.Providers.BinDataset.Enabled)
	assert.Equal(t, "https://bins.example.com", config.Providers.BinDataset.URL)
	assert.InDelta(t, 0.16, config.Providers.BinDataset.Rate, 0.0001)

	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoad_NoConfigFile(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	// Defaults survive untouched.
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, models.StorageTypeMemory, config.Storage.Type)
	assert.True(t, config.Security.EnableAuth)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "bad.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server: [not a map"), 0644))

	_, err := Load(configFile)
	assert.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server:\n  port: -1\n"), 0644))

	_, err := Load(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BINFORGE_PORT", "7070")
	t.Setenv("BINFORGE_HOST", "127.0.0.1")
	t.Setenv("BINFORGE_STORAGE_TYPE", "sqlite")
	t.Setenv("BINFORGE_DATABASE_DSN", "/tmp/env.db")
	t.Setenv("BINFORGE_ENABLE_AUTH", "false")
	t.Setenv("BINFORGE_BOOTSTRAP_KEY", "bfk_env")
	t.Setenv("BINFORGE_MAX_CARDS_PER_REQUEST", "5")
	t.Setenv("BINFORGE_BIN_DATASET_ENABLED", "true")
	t.Setenv("BINFORGE_BIN_DATASET_URL", "https://bins.env.example.com")
	t.Setenv("BINFORGE_BIN_DATASET_RATE", "2.5")
	t.Setenv("BINFORGE_LOG_LEVEL", "warn")
	t.Setenv("BINFORGE_TRACING_ENABLED", "true")
	t.Setenv("BINFORGE_TRACING_EXPORTER", "otlp")
	t.Setenv("BINFORGE_TRACING_ENDPOINT", "collector:4317")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, models.StorageTypeSQLite, config.Storage.Type)
	assert.Equal(t, "/tmp/env.db", config.Storage.Database.DSN)
	assert.False(t, config.Security.EnableAuth)
	assert.Equal(t, "bfk_env", config.Security.BootstrapKey)
	assert.Equal(t, 5, config.Generator.MaxCardsPerRequest)
	assert.True(t, config.Providers.BinDataset.Enabled)
	assert.InDelta(t, 2.5, config.Providers.BinDataset.Rate, 0.0001)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.True(t, config.Observability.Tracing.Enabled)
	assert.Equal(t, "otlp", config.Observability.Tracing.Exporter)
	assert.Equal(t, "collector:4317", config.Observability.Tracing.Endpoint)
}

func TestLoad_EnvironmentIgnoresUnparsable(t *testing.T) {
	t.Setenv("BINFORGE_PORT", "not-a-number")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestSaveExample(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "nested", "example.yaml")

	require.NoError(t, SaveExample(configFile))

	// The example file round-trips through Load.
	config, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "bfk_your-bootstrap-key-here", config.Security.BootstrapKey)
	assert.True(t, config.Security.EnableAuth)
}
