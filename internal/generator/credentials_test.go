package generator

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortCode_Deterministic(t *testing.T) {
	first := ShortCode("4111111111111111", "06/2029")
	second := ShortCode("4111111111111111", "06/2029")
	assert.Equal(t, first, second)

	// Different expiry, different code (with overwhelming probability).
	other := ShortCode("4111111111111111", "07/2029")
	assert.NotEqual(t, first, other)
}

func TestShortCode_Length(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   int
	}{
		{"visa gets three digits", "4111111111111111", 3},
		{"mastercard gets three digits", "5555555555554444", 3},
		{"34 family gets four digits", "340000000000009", 4},
		{"37 family gets four digits", "378282246310005", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := ShortCode(tt.number, "01/2028")
			assert.Len(t, code, tt.want)
			_, err := strconv.Atoi(code)
			assert.NoError(t, err, "code %q must be all digits", code)
		})
	}
}

func TestExpiry_PrepaidRange(t *testing.T) {
	base := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	d := NewDeriver(
		WithDeriverRand(fixedRand(21)),
		WithClock(func() time.Time { return base }),
	)

	min := base.AddDate(0, 12, 0)
	max := base.AddDate(0, 24, 0)
	for i := 0; i < 100; i++ {
		got := parseExpiry(t, d.Expiry("CREDIT PREPAID"))
		assert.False(t, got.Before(monthOf(min)), "expiry %v before 12-month floor", got)
		assert.False(t, got.After(monthOf(max)), "expiry %v after 24-month ceiling", got)
	}
}

func TestExpiry_StandardRange(t *testing.T) {
	base := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	d := NewDeriver(
		WithDeriverRand(fixedRand(22)),
		WithClock(func() time.Time { return base }),
	)

	min := base.AddDate(0, 36, 0)
	max := base.AddDate(0, 60, 0)
	for i := 0; i < 100; i++ {
		got := parseExpiry(t, d.Expiry("CREDIT"))
		assert.False(t, got.Before(monthOf(min)), "expiry %v before 36-month floor", got)
		assert.False(t, got.After(monthOf(max)), "expiry %v after 60-month ceiling", got)
	}
}

func TestExpiry_Format(t *testing.T) {
	base := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
	d := NewDeriver(
		WithDeriverRand(fixedRand(23)),
		WithClock(func() time.Time { return base }),
	)

	for i := 0; i < 20; i++ {
		exp := d.Expiry("DEBIT")
		parts := strings.Split(exp, "/")
		require.Len(t, parts, 2, "expiry %q must be MM/YYYY", exp)
		assert.Len(t, parts[0], 2)
		assert.Len(t, parts[1], 4)
	}
}

func parseExpiry(t *testing.T, s string) time.Time {
	t.Helper()
	var month, year int
	_, err := fmt.Sscanf(s, "%d/%d", &month, &year)
	require.NoError(t, err, "expiry %q", s)
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

func monthOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
}
