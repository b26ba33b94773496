package quota

import (
	"net/http"
	"strings"
)

// Accepted key locations, checked in order.
const (
	authorizationHeader = "Authorization"
	apiKeyHeader        = "X-API-Key"
	apiKeyQueryParam    = "api_key"
)

// KeyFromRequest extracts the presented API key from one of the three
// accepted locations: an Authorization bearer header, the X-API-Key header,
// or the api_key query parameter. Returns "" when no key is presented.
func KeyFromRequest(r *http.Request) string {
	if auth := r.Header.Get(authorizationHeader); auth != "" {
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			return strings.TrimSpace(auth[len("bearer "):])
		}
	}
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return strings.TrimSpace(key)
	}
	return strings.TrimSpace(r.URL.Query().Get(apiKeyQueryParam))
}
