// Package models defines the core data structures for the binforge service.
// This file contains the complete configuration schema with YAML/JSON tags,
// production-ready defaults, and validation.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// Config is the root configuration for the service.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Storage       StorageConfig       `yaml:"storage" json:"storage"`             // Data persistence settings
	Security      SecurityConfig      `yaml:"security" json:"security"`           // Keys, tiers, rate limiting
	Generator     GeneratorConfig     `yaml:"generator" json:"generator"`         // Number synthesis tuning
	Providers     ProvidersConfig     `yaml:"providers" json:"providers"`         // Outbound service limits
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Logging and output configuration
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Prometheus metrics endpoint
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing configuration
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	Type     string            `yaml:"type" json:"type"`
	Database DatabaseConfig    `yaml:"database" json:"database"`
	Options  map[string]string `yaml:"options" json:"options"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

type SecurityConfig struct {
	EnableAuth bool `yaml:"enable_auth" json:"enable_auth"`
	// BootstrapKey, when set, is seeded on startup as an enterprise key with
	// wildcard permissions so operators can mint further keys over the API.
	BootstrapKey string              `yaml:"bootstrap_key" json:"bootstrap_key"`
	Tiers        map[Tier]TierLimits `yaml:"tiers" json:"tiers"`
	RateLimit    RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig tunes the anonymous per-IP limiter fronting the public
// endpoints. Authenticated traffic is governed by per-key quotas instead.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// GeneratorConfig tunes the number synthesizer.
type GeneratorConfig struct {
	MaxAttempts        int `yaml:"max_attempts" json:"max_attempts"`
	MaxDigitRepeat     int `yaml:"max_digit_repeat" json:"max_digit_repeat"`
	MaxCardsPerRequest int `yaml:"max_cards_per_request" json:"max_cards_per_request"`
}

// ProvidersConfig configures outbound collaborators, each guarded by its own
// token bucket. Rates may be fractional (e.g. 0.16 tokens/sec for a published
// limit of one call per 6.25 seconds).
type ProvidersConfig struct {
	BinDataset ProviderConfig `yaml:"bin_dataset" json:"bin_dataset"`
}

type ProviderConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	URL     string        `yaml:"url" json:"url"`
	Rate    float64       `yaml:"rate" json:"rate"` // tokens per second
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Exporter   string  `yaml:"exporter" json:"exporter"` // "stdout" or "otlp"
	Endpoint   string  `yaml:"endpoint" json:"endpoint"` // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with production-ready defaults:
// auth enabled, conservative anonymous rate limits, memory storage for a
// dependency-free start, and metrics on by default.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"*"},
				MaxAge:         86400,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
				ConnMaxIdleTime: 5 * time.Minute,
			},
			Options: make(map[string]string),
		},
		Security: SecurityConfig{
			EnableAuth: true,
			Tiers:      DefaultTierLimits(),
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Generator: GeneratorConfig{
			MaxAttempts:        100,
			MaxDigitRepeat:     2,
			MaxCardsPerRequest: 50,
		},
		Providers: ProvidersConfig{
			BinDataset: ProviderConfig{
				Enabled: false,
				Rate:    0.16, // roughly one call per 6.25s, the dataset's published limit
				Timeout: 5 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "binforge",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}
	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}
	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("invalid generator config: %w", err)
	}
	if err := c.Providers.Validate(); err != nil {
		return fmt.Errorf("invalid providers config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}
	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}
	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}
	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}
	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}
	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeSQLite, StorageTypePostgres:
		if stc.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", stc.Type)
		}
		return nil
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}
}

func (sec *SecurityConfig) Validate() error {
	for tier, limits := range sec.Tiers {
		if !tier.Valid() {
			return fmt.Errorf("unknown tier: %s", tier)
		}
		if limits.PerMinute <= 0 {
			return fmt.Errorf("tier %s: per-minute limit must be positive", tier)
		}
		if limits.PerDay < -1 || limits.PerDay == 0 {
			return fmt.Errorf("tier %s: per-day limit must be positive or -1 for unlimited", tier)
		}
	}
	if sec.RateLimit.Enabled {
		if sec.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("rate limit requests per minute must be positive")
		}
		if sec.RateLimit.BurstSize <= 0 {
			return errors.New("rate limit burst size must be positive")
		}
		if sec.RateLimit.CleanupInterval <= 0 {
			return errors.New("rate limit cleanup interval must be positive")
		}
	}
	return nil
}

func (gc *GeneratorConfig) Validate() error {
	if gc.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}
	if gc.MaxDigitRepeat <= 0 {
		return errors.New("max digit repeat must be positive")
	}
	if gc.MaxCardsPerRequest <= 0 {
		return errors.New("max cards per request must be positive")
	}
	return nil
}

func (pc *ProvidersConfig) Validate() error {
	if pc.BinDataset.Enabled {
		if pc.BinDataset.URL == "" {
			return errors.New("bin dataset URL is required when the provider is enabled")
		}
		if pc.BinDataset.Rate <= 0 {
			return errors.New("bin dataset rate must be positive")
		}
		if pc.BinDataset.Timeout <= 0 {
			return errors.New("bin dataset timeout must be positive")
		}
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	switch lc.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}
	switch lc.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}
	switch lc.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}
	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when log output is file")
	}
	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}
	if mc.Port < 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 0 and 65535")
	}
	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}
	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}
	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.Endpoint == "" {
			return errors.New("tracing endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter: %s", oc.Tracing.Exporter)
	}
	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("tracing sample rate must be between 0 and 1")
	}
	return nil
}
