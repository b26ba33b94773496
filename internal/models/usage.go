package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is a single append-only usage log entry. Records are written
// only for allowed requests; denials are visible through logs and metrics
// but never consume quota.
type UsageRecord struct {
	ID        string    `json:"id"`
	KeyID     string    `json:"key_id"`
	Endpoint  string    `json:"endpoint"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUsageRecord builds a usage record for an allowed request.
func NewUsageRecord(keyID, endpoint, method string, at time.Time) *UsageRecord {
	return &UsageRecord{
		ID:        uuid.New().String(),
		KeyID:     keyID,
		Endpoint:  endpoint,
		Method:    method,
		Timestamp: at,
	}
}
