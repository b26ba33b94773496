package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMinuteWindow_Incr(t *testing.T) {
	w := NewMinuteWindow()
	defer w.Close()

	now := time.Date(2026, time.May, 1, 8, 0, 10, 0, time.UTC)
	assert.Equal(t, 1, w.Incr("key-1", now))
	assert.Equal(t, 2, w.Incr("key-1", now))

	// Separate key, separate counter.
	assert.Equal(t, 1, w.Incr("key-2", now))

	// Same key, next minute bucket.
	assert.Equal(t, 1, w.Incr("key-1", now.Add(time.Minute)))
}

func TestMinuteWindow_EvictStale(t *testing.T) {
	w := NewMinuteWindow()
	defer w.Close()

	base := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	w.Incr("key-1", base)
	w.Incr("key-1", base.Add(5*time.Minute))

	w.evictStale(base.Add(5 * time.Minute))

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.counts, 1, "only the current bucket survives eviction")
}

func TestMinuteWindow_DoubleClose(t *testing.T) {
	w := NewMinuteWindow()
	w.Close()
	w.Close()
}

func TestNextMinute(t *testing.T) {
	now := time.Date(2026, time.May, 1, 8, 0, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.May, 1, 8, 1, 0, 0, time.UTC), NextMinute(now))

	exact := time.Date(2026, time.May, 1, 8, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.May, 1, 8, 2, 0, 0, time.UTC), NextMinute(exact))
}
