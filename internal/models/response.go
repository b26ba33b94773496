// Package models - API response types and error handling.
// This file defines all outgoing API response structures with consistent
// formatting: machine-readable error codes, RFC3339 timestamps, and omitempty
// on optional fields to keep payloads small.
package models

import (
	"time"
)

// GenerateCardsResponse returns the generated cards for one logical request
// along with the quota headroom left on the presented key.
type GenerateCardsResponse struct {
	Cards           []GeneratedCard `json:"cards"`
	Count           int             `json:"count"`
	Bin             string          `json:"bin"`
	Brand           string          `json:"brand,omitempty"`
	RemainingMinute int             `json:"remaining_minute"`
	RemainingDay    int             `json:"remaining_day"` // -1 = unlimited
}

// BinLookupResponse is the metadata view for a single prefix.
type BinLookupResponse struct {
	Bin         string `json:"bin"`
	Brand       string `json:"brand"`
	Issuer      string `json:"issuer,omitempty"`
	Type        string `json:"type,omitempty"`
	Level       string `json:"level,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	CountryName string `json:"country_name,omitempty"`
}

// FromBinInfo populates the response from a stored BIN record.
func (r *BinLookupResponse) FromBinInfo(info *BinInfo) {
	r.Bin = info.Bin
	r.Brand = info.Brand
	r.Issuer = info.Issuer
	r.Type = info.Type
	r.Level = info.Level
	r.CountryCode = info.CountryCode
	r.CountryName = info.CountryName
}

// ErrorResponse provides structured error information with debugging context.
// RateLimit fields are set only on 429 responses so clients can back off
// until ResetAt.
type ErrorResponse struct {
	Error     string            `json:"error"` // Always "error"
	Message   string            `json:"message"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Window    string            `json:"window,omitempty"`   // "minute" or "day" on 429
	ResetAt   *time.Time        `json:"reset_at,omitempty"` // backoff hint on 429
	Timestamp time.Time         `json:"timestamp"`
	RequestID string            `json:"request_id,omitempty"`
}

// HealthCheckResponse reports overall service health plus per-component detail.
type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// KeyUsageResponse summarizes a key's consumption for the stats endpoint.
type KeyUsageResponse struct {
	KeyID           string    `json:"key_id"`
	Tier            Tier      `json:"tier"`
	UsageCountTotal int64     `json:"usage_count_total"`
	DailyUsageCount int       `json:"daily_usage_count"`
	PerMinuteLimit  int       `json:"per_minute_limit"`
	PerDayLimit     int       `json:"per_day_limit"`
	DailyResetAt    time.Time `json:"daily_reset_at"`
}

// Health status constants.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// Standard error codes. Upper-case with underscores, mapped to HTTP status
// codes, machine-readable for client error handling.
const (
	ErrorCodeNotFound           = "NOT_FOUND"           // 404: Resource doesn't exist
	ErrorCodeBinNotFound        = "BIN_NOT_FOUND"       // 404: Prefix unknown to the dataset
	ErrorCodeBinBlocked         = "BIN_BLOCKED"         // 422: Prefix is on the deny list
	ErrorCodeBadRequest         = "BAD_REQUEST"         // 400: Invalid request format
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"     // 400: Invalid request data
	ErrorCodeValidation         = "VALIDATION_ERROR"    // 422: Input validation failed
	ErrorCodeGenerationFailed   = "GENERATION_FAILED"   // 500: Checksum search exhausted (defect)
	ErrorCodeInternalError      = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeUnauthorized       = "UNAUTHORIZED"        // 401: Authentication required
	ErrorCodeForbidden          = "FORBIDDEN"           // 403: Permission denied
	ErrorCodeRateLimited        = "RATE_LIMIT_EXCEEDED" // 429: Minute or day window exhausted
	ErrorCodeConflict           = "CONFLICT"            // 409: Resource conflict
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503: Service temporarily down
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// NewRateLimitResponse builds the 429 body carrying the exhausted window and
// the instant the caller may retry.
func NewRateLimitResponse(window string, resetAt time.Time) *ErrorResponse {
	resp := NewErrorResponse("Rate limit exceeded", ErrorCodeRateLimited)
	resp.Window = window
	resp.ResetAt = &resetAt
	return resp
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
