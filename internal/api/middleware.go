package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"binforge/internal/models"
	"binforge/internal/quota"
)

// quotaMiddleware authenticates the request against the quota manager and
// enforces per-minute and per-day budgets before the handler runs. On
// success the resolved key and the full decision are stored in the request
// context for handlers that want to surface remaining budget.
func (h *Handlers) quotaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := quota.KeyFromRequest(r)

		decision, err := h.quota.Authorize(r.Context(), presented, r.URL.Path, r.Method)
		if err != nil {
			slog.Error("Authorization check failed", "error", err, "path", r.URL.Path)
			h.writeErrorResponse(w, http.StatusServiceUnavailable, "Service temporarily unavailable", models.ErrorCodeServiceUnavailable)
			return
		}

		if !decision.Allowed {
			h.writeDecisionDenied(w, r, decision)
			return
		}

		setBudgetHeaders(w, decision)

		ctx := context.WithValue(r.Context(), "api_key", decision.Key)
		ctx = context.WithValue(ctx, "quota_decision", decision)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) writeDecisionDenied(w http.ResponseWriter, r *http.Request, decision quota.Decision) {
	switch decision.Reason {
	case quota.ReasonNoKey:
		h.writeErrorResponse(w, http.StatusUnauthorized, "API key required", models.ErrorCodeUnauthorized)
	case quota.ReasonInvalidKey:
		h.writeErrorResponse(w, http.StatusUnauthorized, "Invalid API key", models.ErrorCodeUnauthorized)
	case quota.ReasonExpired:
		h.writeErrorResponse(w, http.StatusUnauthorized, "API key has expired", models.ErrorCodeUnauthorized)
	case quota.ReasonRevoked:
		h.writeErrorResponse(w, http.StatusUnauthorized, "API key has been revoked", models.ErrorCodeUnauthorized)
	case quota.ReasonNoPermission:
		h.writeErrorResponse(w, http.StatusForbidden, fmt.Sprintf("API key does not permit %s", r.URL.Path), models.ErrorCodeForbidden)
	case quota.ReasonMinuteLimit, quota.ReasonDailyLimit:
		h.writeRateLimited(w, decision)
	default:
		h.writeErrorResponse(w, http.StatusUnauthorized, "Request not authorized", models.ErrorCodeUnauthorized)
	}
}

func (h *Handlers) writeRateLimited(w http.ResponseWriter, decision quota.Decision) {
	retryAfter := int(time.Until(decision.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	setBudgetHeaders(w, decision)

	h.writeJSONResponse(w, http.StatusTooManyRequests, models.NewRateLimitResponse(decision.Window, decision.ResetAt))
}

func setBudgetHeaders(w http.ResponseWriter, decision quota.Decision) {
	if decision.Key == nil {
		return
	}
	if decision.Key.PerMinuteLimit >= 0 {
		w.Header().Set("X-RateLimit-Limit-Minute", strconv.Itoa(decision.Key.PerMinuteLimit))
		w.Header().Set("X-RateLimit-Remaining-Minute", strconv.Itoa(clampRemaining(decision.RemainingMinute)))
	}
	if decision.Key.PerDayLimit >= 0 {
		w.Header().Set("X-RateLimit-Limit-Day", strconv.Itoa(decision.Key.PerDayLimit))
		w.Header().Set("X-RateLimit-Remaining-Day", strconv.Itoa(clampRemaining(decision.RemainingDay)))
	}
}

func clampRemaining(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// keyFromContext returns the authenticated key placed in the context by
// quotaMiddleware, or nil when authentication is disabled.
func keyFromContext(ctx context.Context) *models.APIKey {
	key, _ := ctx.Value("api_key").(*models.APIKey)
	return key
}

func decisionFromContext(ctx context.Context) (quota.Decision, bool) {
	decision, ok := ctx.Value("quota_decision").(quota.Decision)
	return decision, ok
}
