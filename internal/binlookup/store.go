package binlookup

import (
	"context"
	"errors"
	"fmt"

	"binforge/internal/models"
	"binforge/internal/storage"
)

// StoreSource serves lookups from the local storage backend.
type StoreSource struct {
	store storage.Storage
}

// NewStoreSource creates a store-backed lookup source.
func NewStoreSource(store storage.Storage) *StoreSource {
	return &StoreSource{store: store}
}

// Lookup retrieves cached issuer metadata from the store.
func (s *StoreSource) Lookup(ctx context.Context, bin string) (*models.BinInfo, error) {
	info, err := s.store.GetBin(ctx, bin)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store lookup: %w", err)
	}
	return info, nil
}
