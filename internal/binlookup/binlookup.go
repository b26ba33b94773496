// Package binlookup resolves 6-8 digit prefixes to issuer metadata. A
// resolver consults the local store first and falls back to a remote BIN
// dataset provider, paced by a token bucket so the provider's published rate
// limit is never exceeded.
package binlookup

import (
	"context"
	"errors"

	"binforge/internal/models"
)

// ErrNotFound is returned when no metadata exists for the prefix.
var ErrNotFound = errors.New("bin not found")

// ErrUnavailable is returned when the remote provider cannot be consulted
// right now (rate budget spent or provider disabled).
var ErrUnavailable = errors.New("bin provider unavailable")

// Source looks up issuer metadata for a prefix.
type Source interface {
	Lookup(ctx context.Context, bin string) (*models.BinInfo, error)
}
