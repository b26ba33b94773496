package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"binforge/internal/models"
	"binforge/internal/storage"
)

// Manager orchestrates the full authorization pipeline for a presented key:
// hash lookup, active/expiry checks, the daily and minute windows, permission
// matching, and usage recording. Usage is recorded only for allowed calls;
// denials surface through the decision, audit logs, and metrics.
type Manager struct {
	store   storage.Storage
	minutes *MinuteWindow
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock injects a fixed clock for reproducible tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a quota manager on top of the given store.
func NewManager(store storage.Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		minutes: NewMinuteWindow(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close stops the minute window's eviction goroutine.
func (m *Manager) Close() {
	m.minutes.Close()
}

// Authorize runs the full decision pipeline for one request. The returned
// error is non-nil only for storage failures; every policy outcome, allowed
// or denied, is expressed in the Decision.
//
// The daily budget is spent through a single atomic check-and-increment in
// the store, after the cheaper in-memory checks have passed, so concurrent
// calls for the same key can never push the daily counter past its limit.
func (m *Manager) Authorize(ctx context.Context, presentedKey, endpointPath, method string) (Decision, error) {
	now := m.now().UTC()

	if presentedKey == "" {
		m.audit(ReasonNoKey, nil, endpointPath)
		return deny(ReasonNoKey, nil), nil
	}

	key, err := m.store.GetAPIKeyByHash(ctx, models.HashAPIKey(presentedKey))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.audit(ReasonInvalidKey, nil, endpointPath)
			return deny(ReasonInvalidKey, nil), nil
		}
		return Decision{}, fmt.Errorf("key lookup: %w", err)
	}

	if !key.Active {
		m.audit(ReasonRevoked, key, endpointPath)
		return deny(ReasonRevoked, key), nil
	}
	if key.Expired(now) {
		m.audit(ReasonExpired, key, endpointPath)
		return deny(ReasonExpired, key), nil
	}

	// Cheap peek at the daily window before touching the minute counter or
	// the store; the authoritative check happens in ConsumeDailyQuota.
	if open, _ := key.DailyWindowOpen(now); !open {
		resetAt := key.AdvancedResetAt(now).Add(24 * time.Hour)
		m.audit(ReasonDailyLimit, key, endpointPath)
		return denyWindow(ReasonDailyLimit, key, WindowDay, resetAt), nil
	}

	count := m.minutes.Incr(key.ID, now)
	if count > key.PerMinuteLimit {
		m.audit(ReasonMinuteLimit, key, endpointPath)
		return denyWindow(ReasonMinuteLimit, key, WindowMinute, NextMinute(now)), nil
	}

	if !models.MatchPermission(key.Permissions, endpointPath) {
		m.audit(ReasonNoPermission, key, endpointPath)
		return deny(ReasonNoPermission, key), nil
	}

	updated, err := m.store.ConsumeDailyQuota(ctx, key.ID, now)
	if err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			// Lost a race with a concurrent call for the same key.
			resetAt := updated.DailyResetAt.Add(24 * time.Hour)
			m.audit(ReasonDailyLimit, key, endpointPath)
			return denyWindow(ReasonDailyLimit, key, WindowDay, resetAt), nil
		}
		return Decision{}, fmt.Errorf("consume daily quota: %w", err)
	}

	rec := models.NewUsageRecord(updated.ID, endpointPath, method, now)
	if err := m.store.RecordUsage(ctx, rec); err != nil {
		// The call is already paid for; losing one log entry is preferable
		// to failing the request.
		slog.Error("Failed to record usage", "key_id", updated.ID, "error", err)
	}

	remainingDay := -1
	if updated.PerDayLimit >= 0 {
		remainingDay = updated.PerDayLimit - updated.DailyUsageCount
	}

	return Decision{
		Allowed:         true,
		Reason:          ReasonAllowed,
		Key:             updated,
		RemainingMinute: key.PerMinuteLimit - count,
		RemainingDay:    remainingDay,
	}, nil
}

// audit emits a structured security audit event for a denial.
func (m *Manager) audit(reason Reason, key *models.APIKey, endpointPath string) {
	attrs := []any{
		"event", "security_audit",
		"reason", string(reason),
		"endpoint", endpointPath,
	}
	if key != nil {
		attrs = append(attrs, "key_id", key.ID, "key_prefix", key.Prefix)
	}
	slog.Warn("Authorization denied", attrs...)
}
