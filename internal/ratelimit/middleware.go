package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"binforge/internal/models"
)

// Middleware returns HTTP middleware that enforces a per-IP rate limit on
// anonymous traffic. Requests that carry an authenticated key in the request
// context pass through untouched; their budget is enforced by the per-key
// quota layer instead.
func Middleware(anonymous Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey, ok := r.Context().Value("api_key").(*models.APIKey); ok && apiKey != nil {
				next.ServeHTTP(w, r)
				return
			}
			// The quota layer runs later in the chain, so key-bearing
			// requests are identified by their credential here. Bogus keys
			// still get a 401 there.
			if presentsKey(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			allowed, info := anonymous.Allow(key)

			// Always set rate limit headers
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetAt.Unix()))

			if !allowed {
				retryAfterSecs := int(info.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimited)
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"key", key,
					"limit", info.Limit,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// presentsKey reports whether the request carries an API key credential in
// any of the accepted locations.
func presentsKey(r *http.Request) bool {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return true
	}
	if r.Header.Get("X-API-Key") != "" {
		return true
	}
	return r.URL.Query().Get("api_key") != ""
}

// getClientIP extracts the client IP from the request, checking proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
