package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Bucket paces outbound calls to a single upstream provider at a fixed token
// refill rate, expressed in tokens per second. Sub-1/sec published limits are
// expressed as fractional rates (0.16 tokens/sec is roughly one call every
// six seconds). Allow never blocks; a false return is an immediate rejection,
// not a retry signal.
type Bucket struct {
	limiter *rate.Limiter
}

// NewBucket creates a provider bucket refilling at tokensPerSecond. The
// bucket holds at most max(1, floor(tokensPerSecond)) tokens, so even
// fractional rates admit a call once enough time has elapsed.
func NewBucket(tokensPerSecond float64) *Bucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 1
	}
	burst := int(tokensPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(tokensPerSecond), burst),
	}
}

// Allow consumes one token if available.
func (b *Bucket) Allow() bool {
	return b.limiter.Allow()
}

// Registry holds one bucket per upstream provider key. Buckets are created
// on first registration; Allow on an unregistered provider is permitted so a
// misconfigured provider name fails open rather than silently wedging.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[string]*Bucket)}
}

// Register installs a bucket for the provider key, replacing any existing
// one.
func (r *Registry) Register(providerKey string, tokensPerSecond float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[providerKey] = NewBucket(tokensPerSecond)
}

// Allow consumes a token from the provider's bucket. Unregistered providers
// are always allowed.
func (r *Registry) Allow(providerKey string) bool {
	r.mu.RLock()
	b, ok := r.buckets[providerKey]
	r.mu.RUnlock()
	if !ok {
		return true
	}
	return b.Allow()
}
