package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"binforge/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	name              TEXT NOT NULL,
	tier              TEXT NOT NULL,
	key_hash          TEXT NOT NULL UNIQUE,
	prefix            TEXT NOT NULL,
	permissions       TEXT NOT NULL,
	per_minute_limit  INTEGER NOT NULL,
	per_day_limit     INTEGER NOT NULL,
	usage_count_total INTEGER NOT NULL DEFAULT 0,
	daily_usage_count INTEGER NOT NULL DEFAULT 0,
	daily_reset_at    TIMESTAMP NOT NULL,
	active            BOOLEAN NOT NULL DEFAULT 1,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL,
	expires_at        TIMESTAMP
);

CREATE TABLE IF NOT EXISTS usage_records (
	id        TEXT PRIMARY KEY,
	key_id    TEXT NOT NULL,
	endpoint  TEXT NOT NULL,
	method    TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_key_time ON usage_records (key_id, timestamp);

CREATE TABLE IF NOT EXISTS bins (
	bin          TEXT PRIMARY KEY,
	brand        TEXT NOT NULL,
	issuer       TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL DEFAULT '',
	level        TEXT NOT NULL DEFAULT '',
	country_code TEXT NOT NULL DEFAULT '',
	country_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS blocked_bins (
	bin        TEXT PRIMARY KEY,
	reason     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// SQLiteStorage implements the Storage interface on a single SQLite database
// file via modernc.org/sqlite. Suitable for single-node deployments.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance and applies the
// schema.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// CreateAPIKey stores a new API key.
func (ss *SQLiteStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	perms, err := marshalPermissions(key.Permissions)
	if err != nil {
		return err
	}
	_, err = ss.db.ExecContext(ctx, `
		INSERT INTO api_keys (
			id, owner_id, name, tier, key_hash, prefix, permissions,
			per_minute_limit, per_day_limit, usage_count_total,
			daily_usage_count, daily_reset_at, active, created_at,
			updated_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.OwnerID, key.Name, string(key.Tier), key.KeyHash,
		key.Prefix, perms, key.PerMinuteLimit, key.PerDayLimit,
		key.UsageCountTotal, key.DailyUsageCount, key.DailyResetAt,
		key.Active, key.CreatedAt, key.UpdatedAt, nullTime(key.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// GetAPIKey retrieves an API key by its ID.
func (ss *SQLiteStorage) GetAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	row := ss.db.QueryRowContext(ctx, sqliteSelectKey+` WHERE id = ?`, id)
	return scanAPIKey(row)
}

// GetAPIKeyByHash retrieves an API key by the SHA-256 hash of its raw value.
func (ss *SQLiteStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	row := ss.db.QueryRowContext(ctx, sqliteSelectKey+` WHERE key_hash = ?`, hash)
	return scanAPIKey(row)
}

const sqliteSelectKey = `
	SELECT id, owner_id, name, tier, key_hash, prefix, permissions,
	       per_minute_limit, per_day_limit, usage_count_total,
	       daily_usage_count, daily_reset_at, active, created_at,
	       updated_at, expires_at
	FROM api_keys`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	var (
		k         models.APIKey
		tier      string
		perms     string
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&k.ID, &k.OwnerID, &k.Name, &tier, &k.KeyHash, &k.Prefix, &perms,
		&k.PerMinuteLimit, &k.PerDayLimit, &k.UsageCountTotal,
		&k.DailyUsageCount, &k.DailyResetAt, &k.Active, &k.CreatedAt,
		&k.UpdatedAt, &expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan api key: %w", err)
	}
	k.Tier = models.Tier(tier)
	k.ExpiresAt = timePtr(expiresAt)
	if k.Permissions, err = unmarshalPermissions(perms); err != nil {
		return nil, err
	}
	return &k, nil
}

// ListAPIKeys returns all API keys ordered by creation time.
func (ss *SQLiteStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := ss.db.QueryContext(ctx, sqliteSelectKey+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdateAPIKey replaces the mutable fields of an existing API key.
func (ss *SQLiteStorage) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	perms, err := marshalPermissions(key.Permissions)
	if err != nil {
		return err
	}
	res, err := ss.db.ExecContext(ctx, `
		UPDATE api_keys SET
			owner_id = ?, name = ?, tier = ?, key_hash = ?, prefix = ?,
			permissions = ?, per_minute_limit = ?, per_day_limit = ?,
			usage_count_total = ?, daily_usage_count = ?, daily_reset_at = ?,
			active = ?, updated_at = ?, expires_at = ?
		WHERE id = ?`,
		key.OwnerID, key.Name, string(key.Tier), key.KeyHash, key.Prefix,
		perms, key.PerMinuteLimit, key.PerDayLimit, key.UsageCountTotal,
		key.DailyUsageCount, key.DailyResetAt, key.Active, key.UpdatedAt,
		nullTime(key.ExpiresAt), key.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey permanently removes an API key by ID.
func (ss *SQLiteStorage) DeleteAPIKey(ctx context.Context, id string) error {
	res, err := ss.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeDailyQuota spends one unit of the key's daily budget inside a
// transaction. The store opens a single connection, so the transaction
// serializes concurrent consumers on the same row and the counter can never
// exceed the limit.
func (ss *SQLiteStorage) ConsumeDailyQuota(ctx context.Context, keyID string, now time.Time) (*models.APIKey, error) {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	k, err := scanAPIKey(tx.QueryRowContext(ctx, sqliteSelectKey+` WHERE id = ?`, keyID))
	if err != nil {
		return nil, err
	}

	resetAt := k.DailyResetAt
	daily := k.DailyUsageCount
	if advanced := k.AdvancedResetAt(now); advanced.After(resetAt) {
		resetAt = advanced
		daily = 0
	}

	if k.PerDayLimit >= 0 && daily >= k.PerDayLimit {
		k.DailyResetAt = resetAt
		k.DailyUsageCount = daily
		return k, ErrQuotaExceeded
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE api_keys SET
			daily_usage_count = ?, daily_reset_at = ?,
			usage_count_total = usage_count_total + 1, updated_at = ?
		WHERE id = ?`,
		daily+1, resetAt, now, keyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume daily quota: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit quota consumption: %w", err)
	}

	k.DailyResetAt = resetAt
	k.DailyUsageCount = daily + 1
	k.UsageCountTotal++
	k.UpdatedAt = now
	return k, nil
}

// RecordUsage appends a usage log entry.
func (ss *SQLiteStorage) RecordUsage(ctx context.Context, rec *models.UsageRecord) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, key_id, endpoint, method, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.KeyID, rec.Endpoint, rec.Method, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// UsageForKey returns the most recent usage entries for a key, newest first.
func (ss *SQLiteStorage) UsageForKey(ctx context.Context, keyID string, limit int) ([]*models.UsageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := ss.db.QueryContext(ctx, `
		SELECT id, key_id, endpoint, method, timestamp
		FROM usage_records
		WHERE key_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, keyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var records []*models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		if err := rows.Scan(&rec.ID, &rec.KeyID, &rec.Endpoint, &rec.Method, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// GetBin retrieves cached issuer metadata for a prefix.
func (ss *SQLiteStorage) GetBin(ctx context.Context, bin string) (*models.BinInfo, error) {
	var info models.BinInfo
	err := ss.db.QueryRowContext(ctx, `
		SELECT bin, brand, issuer, type, level, country_code, country_name, created_at
		FROM bins WHERE bin = ?`, bin).Scan(
		&info.Bin, &info.Brand, &info.Issuer, &info.Type, &info.Level,
		&info.CountryCode, &info.CountryName, &info.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bin: %w", err)
	}
	return &info, nil
}

// SaveBin stores or updates issuer metadata for a prefix.
func (ss *SQLiteStorage) SaveBin(ctx context.Context, info *models.BinInfo) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO bins (bin, brand, issuer, type, level, country_code, country_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bin) DO UPDATE SET
			brand = excluded.brand, issuer = excluded.issuer,
			type = excluded.type, level = excluded.level,
			country_code = excluded.country_code,
			country_name = excluded.country_name`,
		info.Bin, info.Brand, info.Issuer, info.Type, info.Level,
		info.CountryCode, info.CountryName, info.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save bin: %w", err)
	}
	return nil
}

// GetBlockedBin retrieves a deny-list entry for a prefix.
func (ss *SQLiteStorage) GetBlockedBin(ctx context.Context, bin string) (*models.BlockedBin, error) {
	var blocked models.BlockedBin
	err := ss.db.QueryRowContext(ctx, `
		SELECT bin, reason, created_at FROM blocked_bins WHERE bin = ?`, bin).Scan(
		&blocked.Bin, &blocked.Reason, &blocked.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blocked bin: %w", err)
	}
	return &blocked, nil
}

// SaveBlockedBin stores or updates a deny-list entry.
func (ss *SQLiteStorage) SaveBlockedBin(ctx context.Context, blocked *models.BlockedBin) error {
	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO blocked_bins (bin, reason, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (bin) DO UPDATE SET reason = excluded.reason`,
		blocked.Bin, blocked.Reason, blocked.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save blocked bin: %w", err)
	}
	return nil
}

// Ping verifies the storage backend is reachable and operational.
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}
