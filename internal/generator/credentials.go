package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Deriver produces the secondary credentials for a generated number: an
// expiry in the plausible range for the card category and a deterministic
// short verification code.
type Deriver struct {
	rng *rand.Rand
	now func() time.Time
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithDeriverRand injects a fixed entropy source for reproducible tests.
func WithDeriverRand(r *rand.Rand) DeriverOption {
	return func(d *Deriver) { d.rng = r }
}

// WithClock injects a fixed clock for reproducible tests.
func WithClock(now func() time.Time) DeriverOption {
	return func(d *Deriver) { d.now = now }
}

// NewDeriver creates a credential deriver.
func NewDeriver(opts ...DeriverOption) *Deriver {
	d := &Deriver{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		seed := uint64(time.Now().UnixNano())
		d.rng = rand.New(rand.NewPCG(seed, seed>>13|1))
	}
	return d
}

// Expiry returns an MM/YYYY expiry drawn uniformly from 12-24 months out for
// prepaid cards and 36-60 months out otherwise.
func (d *Deriver) Expiry(cardType string) string {
	var months int
	if strings.Contains(strings.ToUpper(cardType), "PREPAID") {
		months = 12 + d.rng.IntN(13)
	} else {
		months = 36 + d.rng.IntN(25)
	}
	exp := d.now().AddDate(0, months, 0)
	return fmt.Sprintf("%02d/%d", int(exp.Month()), exp.Year())
}

// ShortCode deterministically derives the card verification code from the
// number and expiry: the decimal digits of sha256(number||expiry), truncated
// to four digits for the 34/37 prefix family and three otherwise. Identical
// inputs always yield the identical code, which keeps test fixtures
// reproducible.
func ShortCode(number, expiry string) string {
	length := 3
	if strings.HasPrefix(number, "34") || strings.HasPrefix(number, "37") {
		length = 4
	}

	sum := sha256.Sum256([]byte(number + expiry))
	digest := hex.EncodeToString(sum[:])

	code := make([]byte, 0, length)
	for i := 0; i < len(digest) && len(code) < length; i++ {
		if digest[i] >= '0' && digest[i] <= '9' {
			code = append(code, digest[i])
		}
	}
	// A 64-char hex digest almost always carries enough decimal digits;
	// fold raw bytes deterministically if it does not.
	for i := 0; len(code) < length; i++ {
		code = append(code, '0'+sum[i%len(sum)]%10)
	}
	return string(code)
}
