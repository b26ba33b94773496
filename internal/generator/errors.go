package generator

import (
	"errors"
	"fmt"
)

// ErrChecksumExhausted means no check digit 0-9 completed the candidate to a
// Luhn-valid number. Exactly one digit always satisfies the test, so seeing
// this error indicates a checksum arithmetic defect. It is fatal to the call,
// never to the process.
var ErrChecksumExhausted = errors.New("no check digit satisfies the checksum")

// ValidationError reports malformed synthesis input (bad prefix, impossible
// target length).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
