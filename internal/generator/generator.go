// Package generator synthesizes checksum-valid test card numbers from a BIN
// prefix and derives their secondary credentials (expiry, short code, AVS
// postal data). Synthesis is a pure function of its inputs plus the injected
// entropy source; nothing in this package touches storage or the network.
package generator

import (
	"math/rand/v2"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts bounds the reject-and-reshuffle loop. After this
	// many rejected candidates the last one is accepted regardless of
	// pattern quality; the filter is best-effort, not a hard guarantee.
	DefaultMaxAttempts = 100

	// DefaultMaxDigitRepeat caps how often a single digit value may appear
	// in the randomly filled positions.
	DefaultMaxDigitRepeat = 2

	minPrefixLen    = 6
	maxPrefixLen    = 8
	minTargetLength = 12
	maxTargetLength = 19
)

// digitWeights favors digits 0-5 twice as heavily as 6-9 to mimic the digit
// distribution of real issued numbers.
var digitWeights = [10]int{2, 2, 2, 2, 2, 2, 1, 1, 1, 1}

// Synthesizer produces checksum-valid candidate numbers under pattern
// constraints. Safe for concurrent use only when each goroutine uses its own
// instance; the entropy source is not synchronized.
type Synthesizer struct {
	maxAttempts    int
	maxDigitRepeat int
	rng            *rand.Rand
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithMaxAttempts overrides the pattern-rejection attempt bound.
func WithMaxAttempts(n int) Option {
	return func(s *Synthesizer) { s.maxAttempts = n }
}

// WithMaxDigitRepeat overrides the per-digit occurrence cap.
func WithMaxDigitRepeat(n int) Option {
	return func(s *Synthesizer) { s.maxDigitRepeat = n }
}

// WithRand injects a fixed entropy source for reproducible tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Synthesizer) { s.rng = r }
}

// NewSynthesizer creates a synthesizer with the given options applied over
// the defaults.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		maxAttempts:    DefaultMaxAttempts,
		maxDigitRepeat: DefaultMaxDigitRepeat,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 1
	}
	if s.maxDigitRepeat < 1 {
		s.maxDigitRepeat = 1
	}
	if s.rng == nil {
		now := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return s
}

// PickLength selects uniformly among the given length alternatives. It
// matches the callback shape of BinInfo.TargetLength.
func (s *Synthesizer) PickLength(choices ...int) int {
	return choices[s.rng.IntN(len(choices))]
}

// Synthesize produces a single number of exactly targetLength digits that
// starts with prefix (right-padded with zeros to six digits when shorter)
// and passes the Luhn test. Candidates containing a run of three identical
// digits or three strictly ascending/descending consecutive digits in the
// filled positions are rejected and reshuffled up to the attempt bound.
func (s *Synthesizer) Synthesize(prefix string, targetLength int) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", &ValidationError{Field: "prefix", Reason: "must not be empty"}
	}
	if len(prefix) > maxPrefixLen {
		return "", &ValidationError{Field: "prefix", Reason: "must be at most 8 digits"}
	}
	for i := 0; i < len(prefix); i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return "", &ValidationError{Field: "prefix", Reason: "must contain only digits"}
		}
	}
	for len(prefix) < minPrefixLen {
		prefix += "0"
	}

	if targetLength < minTargetLength || targetLength > maxTargetLength {
		return "", &ValidationError{Field: "target_length", Reason: "must be between 12 and 19"}
	}
	fill := targetLength - len(prefix) - 1
	if fill < 1 {
		return "", &ValidationError{Field: "target_length", Reason: "leaves no room for random digits"}
	}

	var body []byte
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		body = s.fillDigits(fill)
		if !hasIdenticalRun(body) && !hasMonotonicRun(body) {
			break
		}
		// Last attempt keeps its candidate: documented relaxation.
	}

	partial := prefix + string(body)
	check, ok := luhnCheckDigit(partial)
	if !ok {
		return "", ErrChecksumExhausted
	}
	return partial + string(check), nil
}

// fillDigits draws n digits from the categorical weighting, capping each
// digit value at maxDigitRepeat occurrences, then shuffles the result.
func (s *Synthesizer) fillDigits(n int) []byte {
	var counts [10]int
	digits := make([]byte, 0, n)
	for len(digits) < n {
		d := s.weightedDigit()
		if counts[d] < s.maxDigitRepeat {
			digits = append(digits, '0'+byte(d))
			counts[d]++
			continue
		}
		if alt, ok := s.weightedAlternative(counts); ok {
			digits = append(digits, '0'+byte(alt))
			counts[alt]++
			continue
		}
		// Every digit is at its cap; fall back to a uniform draw.
		digits = append(digits, '0'+byte(s.rng.IntN(10)))
	}
	s.rng.Shuffle(len(digits), func(i, j int) {
		digits[i], digits[j] = digits[j], digits[i]
	})
	return digits
}

// weightedDigit draws one digit from the fixed categorical weighting.
func (s *Synthesizer) weightedDigit() int {
	r := s.rng.IntN(16) // total weight: 6*2 + 4*1
	if r < 12 {
		return r / 2
	}
	return 6 + (r - 12)
}

// weightedAlternative draws a digit among those still under the cap,
// respecting the same weighting.
func (s *Synthesizer) weightedAlternative(counts [10]int) (int, bool) {
	total := 0
	for d := 0; d < 10; d++ {
		if counts[d] < s.maxDigitRepeat {
			total += digitWeights[d]
		}
	}
	if total == 0 {
		return 0, false
	}
	r := s.rng.IntN(total)
	for d := 0; d < 10; d++ {
		if counts[d] >= s.maxDigitRepeat {
			continue
		}
		r -= digitWeights[d]
		if r < 0 {
			return d, true
		}
	}
	return 0, false
}

// hasIdenticalRun reports a run of three identical consecutive digits.
func hasIdenticalRun(digits []byte) bool {
	for i := 0; i+2 < len(digits); i++ {
		if digits[i] == digits[i+1] && digits[i+1] == digits[i+2] {
			return true
		}
	}
	return false
}

// hasMonotonicRun reports three consecutive digits forming a strictly
// ascending or strictly descending run.
func hasMonotonicRun(digits []byte) bool {
	for i := 0; i+2 < len(digits); i++ {
		a, b, c := digits[i], digits[i+1], digits[i+2]
		if b == a+1 && c == b+1 {
			return true
		}
		if b+1 == a && c+1 == b {
			return true
		}
	}
	return false
}
