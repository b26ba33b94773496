package generator

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func TestLuhnValid(t *testing.T) {
	valid := []string{
		"4111111111111111",
		"378282246310005",
		"5555555555554444",
		"6011111111111117",
		"0",
	}
	for _, n := range valid {
		assert.True(t, luhnValid(n), "expected %s to pass", n)
	}

	invalid := []string{
		"4111111111111112",
		"378282246310006",
		"1234567890123456",
		"41111111111111a1",
	}
	for _, n := range invalid {
		assert.False(t, luhnValid(n), "expected %s to fail", n)
	}
}

func TestLuhnCheckDigit(t *testing.T) {
	// Exactly one digit completes any partial number.
	for _, partial := range []string{"411111111111111", "37828224631000", "555555555555444"} {
		d, ok := luhnCheckDigit(partial)
		require.True(t, ok)
		assert.True(t, luhnValid(partial+string(d)))

		// No other digit passes
		for c := byte('0'); c <= '9'; c++ {
			if c != d {
				assert.False(t, luhnValid(partial+string(c)))
			}
		}
	}
}

func TestSynthesize_LengthAndChecksum(t *testing.T) {
	s := NewSynthesizer(WithRand(fixedRand(42)))

	tests := []struct {
		prefix string
		length int
	}{
		{"411111", 16},
		{"378282", 15},
		{"601111", 16},
		{"601111", 19},
		{"36000000", 14},
		{"12345678", 16},
	}
	for _, tt := range tests {
		for i := 0; i < 25; i++ {
			number, err := s.Synthesize(tt.prefix, tt.length)
			require.NoError(t, err)
			assert.Len(t, number, tt.length)
			assert.True(t, strings.HasPrefix(number, tt.prefix))
			assert.True(t, luhnValid(number), "number %s must pass the checksum", number)
		}
	}
}

func TestSynthesize_ShortPrefixPadded(t *testing.T) {
	s := NewSynthesizer(WithRand(fixedRand(7)))

	number, err := s.Synthesize("4111", 16)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, "411100"), "prefix is right-padded with zeros to six digits")
	assert.Len(t, number, 16)
}

func TestSynthesize_Validation(t *testing.T) {
	s := NewSynthesizer(WithRand(fixedRand(1)))

	tests := []struct {
		name   string
		prefix string
		length int
	}{
		{"empty prefix", "", 16},
		{"prefix too long", "123456789", 16},
		{"non-digit prefix", "41111a", 16},
		{"length too short", "411111", 11},
		{"length too long", "411111", 20},
		{"no room for random digits", "12345678", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Synthesize(tt.prefix, tt.length)
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected a validation error, got %v", err)
		})
	}
}

func TestSynthesize_PatternFilter(t *testing.T) {
	// With a fixed seed and attempts to spare, no accepted body may contain
	// a triple-identical or strictly monotonic run of three.
	s := NewSynthesizer(WithRand(fixedRand(99)))

	for i := 0; i < 200; i++ {
		number, err := s.Synthesize("411111", 16)
		require.NoError(t, err)

		body := []byte(number[6 : len(number)-1])
		assert.False(t, hasIdenticalRun(body), "accepted body %q has an identical run", body)
		assert.False(t, hasMonotonicRun(body), "accepted body %q has a monotonic run", body)
	}
}

func TestSynthesize_DigitRepeatCap(t *testing.T) {
	s := NewSynthesizer(WithRand(fixedRand(3)), WithMaxDigitRepeat(2))

	for i := 0; i < 100; i++ {
		number, err := s.Synthesize("411111", 16)
		require.NoError(t, err)

		body := number[6 : len(number)-1]
		var counts [10]int
		for _, c := range []byte(body) {
			counts[c-'0']++
		}
		for d, n := range counts {
			assert.LessOrEqual(t, n, 2, "digit %d appears %d times in body %q", d, n, body)
		}
	}
}

func TestHasIdenticalRun(t *testing.T) {
	assert.True(t, hasIdenticalRun([]byte("120777345")))
	assert.True(t, hasIdenticalRun([]byte("000")))
	assert.False(t, hasIdenticalRun([]byte("7070707")))
	assert.False(t, hasIdenticalRun([]byte("77")))
	assert.False(t, hasIdenticalRun(nil))
}

func TestHasMonotonicRun(t *testing.T) {
	assert.True(t, hasMonotonicRun([]byte("91236")))
	assert.True(t, hasMonotonicRun([]byte("543")))
	assert.True(t, hasMonotonicRun([]byte("210")))
	assert.False(t, hasMonotonicRun([]byte("1357")))
	assert.False(t, hasMonotonicRun([]byte("12")))
	assert.False(t, hasMonotonicRun([]byte("1324")))
}

func TestPickLength(t *testing.T) {
	s := NewSynthesizer(WithRand(fixedRand(11)))
	for i := 0; i < 50; i++ {
		got := s.PickLength(14, 16)
		assert.Contains(t, []int{14, 16}, got)
	}
	assert.Equal(t, 15, s.PickLength(15))
}

func TestSynthesize_WeightedDistribution(t *testing.T) {
	// Digits 0-5 carry twice the weight of 6-9; over many draws the low
	// digits must dominate. A loose bound keeps the test stable.
	s := NewSynthesizer(WithRand(fixedRand(5)))

	var low, high int
	for i := 0; i < 400; i++ {
		number, err := s.Synthesize("411111", 16)
		require.NoError(t, err)
		for _, c := range []byte(number[6 : len(number)-1]) {
			if c <= '5' {
				low++
			} else {
				high++
			}
		}
	}
	assert.Greater(t, low, high, "low digits should outnumber high digits under the 2:1 weighting")
}
