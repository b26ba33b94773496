package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tier is a named service level that determines default quota limits.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Valid reports whether the tier is one of the known service levels.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// TierLimits holds the per-minute and per-day quota for a tier.
// PerDay of -1 means unlimited.
type TierLimits struct {
	PerMinute int `yaml:"per_minute" json:"per_minute"`
	PerDay    int `yaml:"per_day" json:"per_day"`
}

// DefaultTierLimits returns the built-in quota table. Operators can override
// these per tier in the security config.
func DefaultTierLimits() map[Tier]TierLimits {
	return map[Tier]TierLimits{
		TierFree:       {PerMinute: 10, PerDay: 100},
		TierPro:        {PerMinute: 60, PerDay: 5000},
		TierEnterprise: {PerMinute: 300, PerDay: -1},
	}
}

// APIKey represents a stored API key with its quota state. The raw key value
// is never persisted; only its SHA-256 hex hash and an 8-character display
// prefix are stored.
type APIKey struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"owner_id"`
	Name            string           `json:"name"`
	Tier            Tier             `json:"tier"`
	KeyHash         string           `json:"key_hash"`
	Prefix          string           `json:"prefix"`
	Permissions     []PermissionRule `json:"permissions"`
	PerMinuteLimit  int              `json:"per_minute_limit"`
	PerDayLimit     int              `json:"per_day_limit"` // -1 = unlimited
	UsageCountTotal int64            `json:"usage_count_total"`
	DailyUsageCount int              `json:"daily_usage_count"`
	DailyResetAt    time.Time        `json:"daily_reset_at"`
	Active          bool             `json:"active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
}

// NewAPIKey creates a new APIKey from a raw key string with the quota limits
// of the given tier.
func NewAPIKey(id, ownerID, name, rawKey string, tier Tier, limits TierLimits, permissions []PermissionRule) *APIKey {
	now := time.Now().UTC()
	prefix := rawKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return &APIKey{
		ID:             id,
		OwnerID:        ownerID,
		Name:           name,
		Tier:           tier,
		KeyHash:        HashAPIKey(rawKey),
		Prefix:         prefix,
		Permissions:    permissions,
		PerMinuteLimit: limits.PerMinute,
		PerDayLimit:    limits.PerDay,
		DailyResetAt:   now,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// GenerateAPIKey produces a new random API key in the format bfk_<44 url-safe base64 chars>.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 33) // 33 bytes → 44 base64url chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "bfk_" + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey computes the SHA-256 hex digest of a raw API key.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// NewKeyID generates a new UUID v4 for use as an APIKey ID.
func NewKeyID() string {
	return uuid.New().String()
}

// Expired reports whether the key has a set expiry that has passed.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// AdvancedResetAt returns the daily reset anchor advanced by the number of
// full 24h periods elapsed since the stored anchor. The anchor only moves
// forward, in whole-day increments, computed rather than looped.
func (k *APIKey) AdvancedResetAt(now time.Time) time.Time {
	elapsed := now.Sub(k.DailyResetAt)
	if elapsed < 24*time.Hour {
		return k.DailyResetAt
	}
	periods := elapsed / (24 * time.Hour)
	return k.DailyResetAt.Add(periods * 24 * time.Hour)
}

// DailyWindowOpen reports whether the key has daily quota left at the given
// instant, accounting for an anchor that is due to advance. The second return
// value is the remaining budget after one more consume (-1 when unlimited).
func (k *APIKey) DailyWindowOpen(now time.Time) (bool, int) {
	if k.PerDayLimit < 0 {
		return true, -1
	}
	used := k.DailyUsageCount
	if k.AdvancedResetAt(now).After(k.DailyResetAt) {
		used = 0
	}
	if used >= k.PerDayLimit {
		return false, 0
	}
	return true, k.PerDayLimit - used - 1
}
