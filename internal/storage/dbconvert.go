package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"binforge/internal/models"
)

// marshalPermissions serializes permission rules to the JSON string stored in
// the database.
func marshalPermissions(rules []models.PermissionRule) (string, error) {
	raw, err := json.Marshal(models.PermissionStrings(rules))
	if err != nil {
		return "", fmt.Errorf("failed to marshal permissions: %w", err)
	}
	return string(raw), nil
}

// unmarshalPermissions parses the stored JSON string back into permission
// rules.
func unmarshalPermissions(raw string) ([]models.PermissionRule, error) {
	if raw == "" {
		return nil, nil
	}
	var patterns []string
	if err := json.Unmarshal([]byte(raw), &patterns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}
	rules, err := models.ParsePermissionRules(patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored permissions: %w", err)
	}
	return rules, nil
}

// nullTime converts an optional expiry to its database representation.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr converts a database NULL-able timestamp back to an optional expiry.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
