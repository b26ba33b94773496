package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageTypeMemory, cfg.Storage.Type)
	assert.True(t, cfg.Security.EnableAuth)
	assert.Equal(t, 100, cfg.Generator.MaxAttempts)
	assert.Equal(t, 2, cfg.Generator.MaxDigitRepeat)
	assert.True(t, cfg.Metrics.Enabled)

	// Defaults must validate as-is
	assert.NoError(t, cfg.Validate())
}

func TestDefaultTierLimits(t *testing.T) {
	tiers := DefaultTierLimits()
	assert.Equal(t, TierLimits{PerMinute: 10, PerDay: 100}, tiers[TierFree])
	assert.Equal(t, TierLimits{PerMinute: 60, PerDay: 5000}, tiers[TierPro])
	assert.Equal(t, -1, tiers[TierEnterprise].PerDay, "enterprise daily quota is unlimited")
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{"valid defaults", func(sc *ServerConfig) {}, false},
		{"zero port", func(sc *ServerConfig) { sc.Port = 0 }, true},
		{"port too high", func(sc *ServerConfig) { sc.Port = 70000 }, true},
		{"empty host", func(sc *ServerConfig) { sc.Host = "" }, true},
		{"negative read timeout", func(sc *ServerConfig) { sc.ReadTimeout = -time.Second }, true},
		{"tls without cert", func(sc *ServerConfig) { sc.TLSEnabled = true }, true},
		{"tls with cert and key", func(sc *ServerConfig) {
			sc.TLSEnabled = true
			sc.TLSCertFile = "cert.pem"
			sc.TLSKeyFile = "key.pem"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewDefaultConfig().Server
			tt.mutate(&sc)
			err := sc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorageConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  StorageConfig
		wantErr bool
	}{
		{"memory", StorageConfig{Type: StorageTypeMemory}, false},
		{"sqlite with dsn", StorageConfig{Type: StorageTypeSQLite, Database: DatabaseConfig{DSN: "file:test.db"}}, false},
		{"sqlite without dsn", StorageConfig{Type: StorageTypeSQLite}, true},
		{"postgres without dsn", StorageConfig{Type: StorageTypePostgres}, true},
		{"unknown type", StorageConfig{Type: "etcd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSecurityConfig_Validate(t *testing.T) {
	t.Run("default tiers valid", func(t *testing.T) {
		sec := NewDefaultConfig().Security
		assert.NoError(t, sec.Validate())
	})

	t.Run("unknown tier", func(t *testing.T) {
		sec := SecurityConfig{Tiers: map[Tier]TierLimits{"platinum": {PerMinute: 1, PerDay: 1}}}
		assert.Error(t, sec.Validate())
	})

	t.Run("zero per-minute", func(t *testing.T) {
		sec := SecurityConfig{Tiers: map[Tier]TierLimits{TierFree: {PerMinute: 0, PerDay: 10}}}
		assert.Error(t, sec.Validate())
	})

	t.Run("zero per-day rejected, -1 allowed", func(t *testing.T) {
		sec := SecurityConfig{Tiers: map[Tier]TierLimits{TierFree: {PerMinute: 1, PerDay: 0}}}
		assert.Error(t, sec.Validate())

		sec = SecurityConfig{Tiers: map[Tier]TierLimits{TierFree: {PerMinute: 1, PerDay: -1}}}
		assert.NoError(t, sec.Validate())
	})

	t.Run("rate limit fields", func(t *testing.T) {
		sec := SecurityConfig{RateLimit: RateLimitConfig{Enabled: true}}
		assert.Error(t, sec.Validate())
	})
}

func TestGeneratorConfig_Validate(t *testing.T) {
	valid := GeneratorConfig{MaxAttempts: 100, MaxDigitRepeat: 2, MaxCardsPerRequest: 50}
	assert.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*GeneratorConfig){
		"zero attempts":     func(g *GeneratorConfig) { g.MaxAttempts = 0 },
		"zero digit repeat": func(g *GeneratorConfig) { g.MaxDigitRepeat = 0 },
		"zero cards cap":    func(g *GeneratorConfig) { g.MaxCardsPerRequest = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			g := valid
			mutate(&g)
			assert.Error(t, g.Validate())
		})
	}
}

func TestProvidersConfig_Validate(t *testing.T) {
	t.Run("disabled provider needs nothing", func(t *testing.T) {
		pc := ProvidersConfig{}
		assert.NoError(t, pc.Validate())
	})

	t.Run("enabled provider needs url, rate and timeout", func(t *testing.T) {
		pc := ProvidersConfig{BinDataset: ProviderConfig{Enabled: true}}
		assert.Error(t, pc.Validate())

		pc.BinDataset.URL = "https://lookup.example.com"
		assert.Error(t, pc.Validate())

		pc.BinDataset.Rate = 0.16
		assert.Error(t, pc.Validate())

		pc.BinDataset.Timeout = 5 * time.Second
		assert.NoError(t, pc.Validate())
	})
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr bool
	}{
		{"json stdout", LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, false},
		{"text stderr", LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, false},
		{"file with path", LoggingConfig{Level: "warn", Format: "json", Output: "file", FilePath: "/tmp/binforge.log"}, false},
		{"file without path", LoggingConfig{Level: "warn", Format: "json", Output: "file"}, true},
		{"bad level", LoggingConfig{Level: "verbose", Format: "json", Output: "stdout"}, true},
		{"bad format", LoggingConfig{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", LoggingConfig{Level: "info", Format: "json", Output: "syslog"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestObservabilityConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ObservabilityConfig
		wantErr bool
	}{
		{"tracing disabled", ObservabilityConfig{Tracing: TracingConfig{Enabled: false}}, false},
		{"stdout exporter", ObservabilityConfig{Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1.0}}, false},
		{"otlp with endpoint", ObservabilityConfig{Tracing: TracingConfig{Enabled: true, Exporter: "otlp", Endpoint: "localhost:4317", SampleRate: 0.5}}, false},
		{"otlp without endpoint", ObservabilityConfig{Tracing: TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 0.5}}, true},
		{"unknown exporter", ObservabilityConfig{Tracing: TracingConfig{Enabled: true, Exporter: "jaeger", SampleRate: 1.0}}, true},
		{"sample rate out of range", ObservabilityConfig{Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1.5}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
