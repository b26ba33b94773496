// Package quota is the authorization core: it authenticates presented API
// keys, evaluates the per-minute and per-day windows, matches endpoint
// permissions, and records usage for allowed calls. It is the sole entry
// point through which request handlers gate access.
package quota

import (
	"time"

	"binforge/internal/models"
)

// Reason classifies the outcome of an authorization decision.
type Reason string

const (
	ReasonAllowed      Reason = "allowed"
	ReasonNoKey        Reason = "no_key"
	ReasonInvalidKey   Reason = "invalid_key"
	ReasonExpired      Reason = "key_expired"
	ReasonRevoked      Reason = "key_revoked"
	ReasonMinuteLimit  Reason = "minute_limit_exceeded"
	ReasonDailyLimit   Reason = "daily_limit_exceeded"
	ReasonNoPermission Reason = "permission_denied"
)

// Window names for rate-limited decisions.
const (
	WindowMinute = "minute"
	WindowDay    = "day"
)

// Decision is the result of a single authorize call. Denials carry a typed
// reason and, for rate limits, the window that tripped and when it resets.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Key is the resolved API key; nil when the key was missing or unknown.
	Key *models.APIKey

	// Window and ResetAt are set when Reason is a rate-limit denial.
	Window  string
	ResetAt time.Time

	// Remaining budgets after this call; -1 means unlimited. Only
	// meaningful when Allowed.
	RemainingMinute int
	RemainingDay    int
}

func deny(reason Reason, key *models.APIKey) Decision {
	return Decision{Reason: reason, Key: key}
}

func denyWindow(reason Reason, key *models.APIKey, window string, resetAt time.Time) Decision {
	return Decision{Reason: reason, Key: key, Window: window, ResetAt: resetAt}
}
