package cards

import (
	"context"

	"binforge/internal/models"
)

// ServiceInterface defines the interface for card generation operations
type ServiceInterface interface {
	// GenerateCards produces checksum-valid card numbers with derived
	// credentials for the request's prefix
	GenerateCards(ctx context.Context, req *models.GenerateCardsRequest) ([]models.GeneratedCard, *models.BinInfo, error)

	// LookupBin resolves issuer metadata for a prefix
	LookupBin(ctx context.Context, bin string) (*models.BinInfo, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
