package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binforge/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	name              TEXT NOT NULL,
	tier              TEXT NOT NULL,
	key_hash          TEXT NOT NULL UNIQUE,
	prefix            TEXT NOT NULL,
	permissions       JSONB NOT NULL,
	per_minute_limit  INTEGER NOT NULL,
	per_day_limit     INTEGER NOT NULL,
	usage_count_total BIGINT NOT NULL DEFAULT 0,
	daily_usage_count INTEGER NOT NULL DEFAULT 0,
	daily_reset_at    TIMESTAMPTZ NOT NULL,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	expires_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS usage_records (
	id        TEXT PRIMARY KEY,
	key_id    TEXT NOT NULL,
	endpoint  TEXT NOT NULL,
	method    TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL
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
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS blocked_bins (
	bin        TEXT PRIMARY KEY,
	reason     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// PostgresStorage implements the Storage interface using PostgreSQL via a
// pgx connection pool. Row locks on api_keys serialize the daily quota
// check-and-increment across concurrent callers and instances.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance and applies
// the schema.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	pool, err := pgxpool.New(context.Background(), config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// CreateAPIKey stores a new API key.
func (ps *PostgresStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	perms, err := marshalPermissions(key.Permissions)
	if err != nil {
		return err
	}
	_, err = ps.pool.Exec(ctx, `
		INSERT INTO api_keys (
			id, owner_id, name, tier, key_hash, prefix, permissions,
			per_minute_limit, per_day_limit, usage_count_total,
			daily_usage_count, daily_reset_at, active, created_at,
			updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		key.ID, key.OwnerID, key.Name, string(key.Tier), key.KeyHash,
		key.Prefix, perms, key.PerMinuteLimit, key.PerDayLimit,
		key.UsageCountTotal, key.DailyUsageCount, key.DailyResetAt,
		key.Active, key.CreatedAt, key.UpdatedAt, key.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

const pgSelectKey = `
	SELECT id, owner_id, name, tier, key_hash, prefix, permissions,
	       per_minute_limit, per_day_limit, usage_count_total,
	       daily_usage_count, daily_reset_at, active, created_at,
	       updated_at, expires_at
	FROM api_keys`

func scanPgAPIKey(row pgx.Row) (*models.APIKey, error) {
	var (
		k     models.APIKey
		tier  string
		perms string
	)
	err := row.Scan(
		&k.ID, &k.OwnerID, &k.Name, &tier, &k.KeyHash, &k.Prefix, &perms,
		&k.PerMinuteLimit, &k.PerDayLimit, &k.UsageCountTotal,
		&k.DailyUsageCount, &k.DailyResetAt, &k.Active, &k.CreatedAt,
		&k.UpdatedAt, &k.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan api key: %w", err)
	}
	k.Tier = models.Tier(tier)
	if k.Permissions, err = unmarshalPermissions(perms); err != nil {
		return nil, err
	}
	return &k, nil
}

// GetAPIKey retrieves an API key by its ID.
func (ps *PostgresStorage) GetAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	return scanPgAPIKey(ps.pool.QueryRow(ctx, pgSelectKey+` WHERE id = $1`, id))
}

// GetAPIKeyByHash retrieves an API key by the SHA-256 hash of its raw value.
func (ps *PostgresStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	return scanPgAPIKey(ps.pool.QueryRow(ctx, pgSelectKey+` WHERE key_hash = $1`, hash))
}

// ListAPIKeys returns all API keys ordered by creation time.
func (ps *PostgresStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := ps.pool.Query(ctx, pgSelectKey+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		k, err := scanPgAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdateAPIKey replaces the mutable fields of an existing API key.
func (ps *PostgresStorage) UpdateAPIKey(ctx context.Context, key *models.APIKey) error {
	perms, err := marshalPermissions(key.Permissions)
	if err != nil {
		return err
	}
	tag, err := ps.pool.Exec(ctx, `
		UPDATE api_keys SET
			owner_id = $1, name = $2, tier = $3, key_hash = $4, prefix = $5,
			permissions = $6, per_minute_limit = $7, per_day_limit = $8,
			usage_count_total = $9, daily_usage_count = $10,
			daily_reset_at = $11, active = $12, updated_at = $13,
			expires_at = $14
		WHERE id = $15`,
		key.OwnerID, key.Name, string(key.Tier), key.KeyHash, key.Prefix,
		perms, key.PerMinuteLimit, key.PerDayLimit, key.UsageCountTotal,
		key.DailyUsageCount, key.DailyResetAt, key.Active, key.UpdatedAt,
		key.ExpiresAt, key.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey permanently removes an API key by ID.
func (ps *PostgresStorage) DeleteAPIKey(ctx context.Context, id string) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeDailyQuota spends one unit of the key's daily budget inside a
// transaction. SELECT FOR UPDATE serializes concurrent consumers on the same
// row so the counter can never exceed the limit.
func (ps *PostgresStorage) ConsumeDailyQuota(ctx context.Context, keyID string, now time.Time) (*models.APIKey, error) {
	tx, err := ps.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	k, err := scanPgAPIKey(tx.QueryRow(ctx, pgSelectKey+` WHERE id = $1 FOR UPDATE`, keyID))
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

	_, err = tx.Exec(ctx, `
		UPDATE api_keys SET
			daily_usage_count = $1, daily_reset_at = $2,
			usage_count_total = usage_count_total + 1, updated_at = $3
		WHERE id = $4`,
		daily+1, resetAt, now, keyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume daily quota: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quota consumption: %w", err)
	}

	k.DailyResetAt = resetAt
	k.DailyUsageCount = daily + 1
	k.UsageCountTotal++
	k.UpdatedAt = now
	return k, nil
}

// RecordUsage appends a usage log entry.
func (ps *PostgresStorage) RecordUsage(ctx context.Context, rec *models.UsageRecord) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO usage_records (id, key_id, endpoint, method, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.KeyID, rec.Endpoint, rec.Method, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// UsageForKey returns the most recent usage entries for a key, newest first.
func (ps *PostgresStorage) UsageForKey(ctx context.Context, keyID string, limit int) ([]*models.UsageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := ps.pool.Query(ctx, `
		SELECT id, key_id, endpoint, method, timestamp
		FROM usage_records
		WHERE key_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`, keyID, limit)
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
func (ps *PostgresStorage) GetBin(ctx context.Context, bin string) (*models.BinInfo, error) {
	var info models.BinInfo
	err := ps.pool.QueryRow(ctx, `
		SELECT bin, brand, issuer, type, level, country_code, country_name, created_at
		FROM bins WHERE bin = $1`, bin).Scan(
		&info.Bin, &info.Brand, &info.Issuer, &info.Type, &info.Level,
		&info.CountryCode, &info.CountryName, &info.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bin: %w", err)
	}
	return &info, nil
}

// SaveBin stores or updates issuer metadata for a prefix.
func (ps *PostgresStorage) SaveBin(ctx context.Context, info *models.BinInfo) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO bins (bin, brand, issuer, type, level, country_code, country_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (bin) DO UPDATE SET
			brand = EXCLUDED.brand, issuer = EXCLUDED.issuer,
			type = EXCLUDED.type, level = EXCLUDED.level,
			country_code = EXCLUDED.country_code,
			country_name = EXCLUDED.country_name`,
		info.Bin, info.Brand, info.Issuer, info.Type, info.Level,
		info.CountryCode, info.CountryName, info.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save bin: %w", err)
	}
	return nil
}

// GetBlockedBin retrieves a deny-list entry for a prefix.
func (ps *PostgresStorage) GetBlockedBin(ctx context.Context, bin string) (*models.BlockedBin, error) {
	var blocked models.BlockedBin
	err := ps.pool.QueryRow(ctx, `
		SELECT bin, reason, created_at FROM blocked_bins WHERE bin = $1`, bin).Scan(
		&blocked.Bin, &blocked.Reason, &blocked.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blocked bin: %w", err)
	}
	return &blocked, nil
}

// SaveBlockedBin stores or updates a deny-list entry.
func (ps *PostgresStorage) SaveBlockedBin(ctx context.Context, blocked *models.BlockedBin) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO blocked_bins (bin, reason, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (bin) DO UPDATE SET reason = EXCLUDED.reason`,
		blocked.Bin, blocked.Reason, blocked.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save blocked bin: %w", err)
	}
	return nil
}

// Ping verifies the storage backend is reachable and operational.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
