package binlookup

import (
	"context"
	"errors"
	"log/slog"

	"binforge/internal/models"
	"binforge/internal/storage"
)

// Resolver answers lookups from the local store and falls back to the remote
// provider on a miss, persisting fetched metadata so subsequent lookups stay
// local. A nil remote source turns the resolver into a cache-only lookup.
type Resolver struct {
	store  storage.Storage
	local  Source
	remote Source
}

// NewResolver creates a resolver over the store and an optional remote
// source.
func NewResolver(store storage.Storage, remote Source) *Resolver {
	return &Resolver{
		store:  store,
		local:  NewStoreSource(store),
		remote: remote,
	}
}

// Lookup resolves issuer metadata for a prefix.
func (r *Resolver) Lookup(ctx context.Context, bin string) (*models.BinInfo, error) {
	info, err := r.local.Lookup(ctx, bin)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if r.remote == nil {
		return nil, ErrNotFound
	}

	info, err = r.remote.Lookup(ctx, bin)
	if err != nil {
		return nil, err
	}

	if saveErr := r.store.SaveBin(ctx, info); saveErr != nil {
		// The lookup already succeeded; a failed cache write only costs a
		// future provider call.
		slog.Warn("Failed to cache bin metadata", "bin", bin, "error", saveErr)
	}

	return info, nil
}
