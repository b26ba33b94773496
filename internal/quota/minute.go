package quota

import (
	"sync"
	"time"
)

// bucketKey identifies one key's counter within one minute bucket.
type bucketKey struct {
	keyID  string
	minute int64
}

// MinuteWindow counts requests per key per minute bucket in process memory.
// Counters are approximate under multi-instance deployment: each instance
// counts only its own traffic. Stale buckets are evicted by a background
// goroutine a few minutes after their window closes.
type MinuteWindow struct {
	mu     sync.Mutex
	counts map[bucketKey]int
	done   chan struct{}
	closed bool
}

// NewMinuteWindow creates a minute window counter and starts its eviction
// goroutine.
func NewMinuteWindow() *MinuteWindow {
	w := &MinuteWindow{
		counts: make(map[bucketKey]int),
		done:   make(chan struct{}),
	}
	go w.cleanup()
	return w
}

// Incr increments the counter for the key's current minute bucket and
// returns the new count.
func (w *MinuteWindow) Incr(keyID string, now time.Time) int {
	k := bucketKey{keyID: keyID, minute: now.Unix() / 60}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.counts[k]++
	return w.counts[k]
}

// Close stops the eviction goroutine.
func (w *MinuteWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
}

// cleanup periodically evicts buckets more than three minutes old.
func (w *MinuteWindow) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.evictStale(time.Now())
		}
	}
}

func (w *MinuteWindow) evictStale(now time.Time) {
	cutoff := now.Unix()/60 - 3
	w.mu.Lock()
	defer w.mu.Unlock()
	for k := range w.counts {
		if k.minute < cutoff {
			delete(w.counts, k)
		}
	}
}

// NextMinute returns the start of the minute after now, which is when a
// tripped minute window reopens.
func NextMinute(now time.Time) time.Time {
	return now.Truncate(time.Minute).Add(time.Minute)
}
