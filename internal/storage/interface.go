package storage

import (
	"context"
	"time"

	"binforge/internal/models"
)

// Storage defines the interface for key, quota, usage, and BIN metadata
// persistence. It provides a clean abstraction that can be implemented by
// different backends such as databases or in-memory maps.
type Storage interface {
	// CreateAPIKey stores a new API key
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	// GetAPIKey retrieves an API key by its ID
	GetAPIKey(ctx context.Context, id string) (*models.APIKey, error)

	// GetAPIKeyByHash retrieves an API key by the SHA-256 hash of its raw value
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)

	// ListAPIKeys returns all API keys (both active and revoked)
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)

	// UpdateAPIKey replaces the mutable fields of an existing API key
	UpdateAPIKey(ctx context.Context, key *models.APIKey) error

	// DeleteAPIKey permanently removes an API key by ID
	DeleteAPIKey(ctx context.Context, id string) error

	// ConsumeDailyQuota atomically advances the key's daily reset anchor,
	// checks the per-day limit, and increments the usage counters. It
	// returns the updated key snapshot, or the current snapshot plus
	// ErrQuotaExceeded when the daily budget is spent. Concurrent calls for
	// the same key must serialize so the counter never exceeds the limit.
	ConsumeDailyQuota(ctx context.Context, keyID string, now time.Time) (*models.APIKey, error)

	// RecordUsage appends a usage log entry
	RecordUsage(ctx context.Context, rec *models.UsageRecord) error

	// UsageForKey returns the most recent usage entries for a key, newest
	// first, capped at limit
	UsageForKey(ctx context.Context, keyID string, limit int) ([]*models.UsageRecord, error)

	// GetBin retrieves cached issuer metadata for a prefix
	GetBin(ctx context.Context, bin string) (*models.BinInfo, error)

	// SaveBin stores or updates issuer metadata for a prefix
	SaveBin(ctx context.Context, info *models.BinInfo) error

	// GetBlockedBin retrieves a deny-list entry for a prefix
	GetBlockedBin(ctx context.Context, bin string) (*models.BlockedBin, error)

	// SaveBlockedBin stores or updates a deny-list entry
	SaveBlockedBin(ctx context.Context, blocked *models.BlockedBin) error

	// Ping verifies the storage backend is reachable and operational
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (memory, sqlite, postgres)
	Type string `json:"type" yaml:"type"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// Additional options for specific backends
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}
