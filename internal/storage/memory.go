package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"binforge/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data
// structures. This provider is ideal for development, testing, and scenarios
// where data persistence is not required. It provides fast access but data is
// lost on restart.
type MemoryStorage struct {
	mu           sync.RWMutex
	apiKeys      map[string]*models.APIKey // keyed by ID
	apiKeyHashes map[string]string         // hash -> ID
	usage        map[string][]*models.UsageRecord
	bins         map[string]*models.BinInfo
	blockedBins  map[string]*models.BlockedBin
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		apiKeys:      make(map[string]*models.APIKey),
		apiKeyHashes: make(map[string]string),
		usage:        make(map[string][]*models.UsageRecord),
		bins:         make(map[string]*models.BinInfo),
		blockedBins:  make(map[string]*models.BlockedBin),
	}, nil
}

// CreateAPIKey stores a new API key in memory.
func (m *MemoryStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.apiKeys[key.ID]; exists {
		return ErrDuplicateKey
	}
	if _, exists := m.apiKeyHashes[key.KeyHash]; exists {
		return ErrDuplicateKey
	}
	c := copyKey(key)
	m.apiKeys[key.ID] = c
	m.apiKeyHashes[key.KeyHash] = key.ID
	return nil
}

// GetAPIKey retrieves an API key by its ID.
// Returns ErrNotFound if the key does not exist.
func (m *MemoryStorage) GetAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.apiKeys[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyKey(k), nil
}

// GetAPIKeyByHash retrieves an API key by its SHA-256 hash.
// Returns ErrNotFound if no matching key exists.
func (m *MemoryStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.apiKeyHashes[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return copyKey(m.apiKeys[id]), nil
}

// ListAPIKeys returns all API keys (both active and revoked).
func (m *MemoryStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.APIKey, 0, len(m.apiKeys))
	for _, k := range m.apiKeys {
		out = append(out, copyKey(k))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateAPIKey replaces the mutable fields of an existing API key.
// Returns ErrNotFound if the key does not exist.
func (m *MemoryStorage) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.apiKeys[key.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.KeyHash != key.KeyHash {
		delete(m.apiKeyHashes, existing.KeyHash)
		m.apiKeyHashes[key.KeyHash] = key.ID
	}
	m.apiKeys[key.ID] = copyKey(key)
	return nil
}

// DeleteAPIKey permanently removes an API key by ID.
// Returns ErrNotFound if the key does not exist.
func (m *MemoryStorage) DeleteAPIKey(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.apiKeys[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.apiKeyHashes, k.KeyHash)
	delete(m.apiKeys, id)
	return nil
}

// ConsumeDailyQuota atomically advances the daily window and spends one unit
// of the key's daily budget. The single mutex makes check-then-increment
// atomic for all keys in this backend.
func (m *MemoryStorage) ConsumeDailyQuota(ctx context.Context, keyID string, now time.Time) (*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.apiKeys[keyID]
	if !ok {
		return nil, ErrNotFound
	}

	if advanced := k.AdvancedResetAt(now); advanced.After(k.DailyResetAt) {
		k.DailyResetAt = advanced
		k.DailyUsageCount = 0
	}

	if k.PerDayLimit >= 0 && k.DailyUsageCount >= k.PerDayLimit {
		return copyKey(k), ErrQuotaExceeded
	}

	k.DailyUsageCount++
	k.UsageCountTotal++
	k.UpdatedAt = now

	return copyKey(k), nil
}

// RecordUsage appends a usage log entry.
func (m *MemoryStorage) RecordUsage(ctx context.Context, rec *models.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *rec
	m.usage[rec.KeyID] = append(m.usage[rec.KeyID], &c)
	return nil
}

// UsageForKey returns the most recent usage entries for a key, newest first.
func (m *MemoryStorage) UsageForKey(ctx context.Context, keyID string, limit int) ([]*models.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.usage[keyID]
	out := make([]*models.UsageRecord, 0, len(records))
	for _, r := range records {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].Timestamp.Before(out[i].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetBin retrieves cached issuer metadata for a prefix.
// Returns ErrNotFound if the prefix is unknown.
func (m *MemoryStorage) GetBin(ctx context.Context, bin string) (*models.BinInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.bins[strings.TrimSpace(bin)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *info
	return &c, nil
}

// SaveBin stores or updates issuer metadata for a prefix.
func (m *MemoryStorage) SaveBin(ctx context.Context, info *models.BinInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *info
	m.bins[info.Bin] = &c
	return nil
}

// GetBlockedBin retrieves a deny-list entry for a prefix.
// Returns ErrNotFound if the prefix is not blocked.
func (m *MemoryStorage) GetBlockedBin(ctx context.Context, bin string) (*models.BlockedBin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blocked, ok := m.blockedBins[strings.TrimSpace(bin)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *blocked
	return &c, nil
}

// SaveBlockedBin stores or updates a deny-list entry.
func (m *MemoryStorage) SaveBlockedBin(ctx context.Context, blocked *models.BlockedBin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *blocked
	m.blockedBins[blocked.Bin] = &c
	return nil
}

// Ping verifies the storage backend is reachable and operational.
func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close closes the storage connection and cleans up resources.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiKeys = make(map[string]*models.APIKey)
	m.apiKeyHashes = make(map[string]string)
	m.usage = make(map[string][]*models.UsageRecord)
	m.bins = make(map[string]*models.BinInfo)
	m.blockedBins = make(map[string]*models.BlockedBin)

	return nil
}

// copyKey deep-copies an API key so callers cannot mutate stored state.
func copyKey(k *models.APIKey) *models.APIKey {
	c := *k
	c.Permissions = append([]models.PermissionRule(nil), k.Permissions...)
	if k.ExpiresAt != nil {
		expiry := *k.ExpiresAt
		c.ExpiresAt = &expiry
	}
	return &c
}
