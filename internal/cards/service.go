// Package cards implements the card generation business logic: resolving and
// vetting the prefix, synthesizing checksum-valid numbers, and deriving
// expiry, short code, and AVS postal data.
package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"binforge/internal/binlookup"
	"binforge/internal/generator"
	"binforge/internal/models"
	"binforge/internal/storage"
)

// numberSynthesizer covers the generator.Synthesizer surface the service
// uses.
type numberSynthesizer interface {
	Synthesize(prefix string, targetLength int) (string, error)
	PickLength(choices ...int) int
}

// Service handles card generation and BIN lookup business logic
type Service struct {
	storage  storage.Storage
	resolver binlookup.Source
	synth    numberSynthesizer
	deriver  *generator.Deriver
	maxCards int
}

// NewService creates a new card service with the given storage backend and
// BIN resolver. maxCards caps the count of a single generate request.
func NewService(store storage.Storage, resolver binlookup.Source, synth *generator.Synthesizer, deriver *generator.Deriver, maxCards int) *Service {
	if maxCards < 1 {
		maxCards = 50
	}
	return &Service{
		storage:  store,
		resolver: resolver,
		synth:    synth,
		deriver:  deriver,
		maxCards: maxCards,
	}
}

// GenerateCards produces checksum-valid numbers for the request's prefix,
// each with a derived expiry, short code, and optional AVS postal code.
func (s *Service) GenerateCards(ctx context.Context, req *models.GenerateCardsRequest) ([]models.GeneratedCard, *models.BinInfo, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, NewValidationError("invalid generate request", err)
	}
	if req.Count > s.maxCards {
		return nil, nil, NewValidationError(
			fmt.Sprintf("count must not exceed %d", s.maxCards), nil)
	}
	if req.Country != "" && !generator.AVSSupported(req.Country) {
		return nil, nil, NewValidationError(
			fmt.Sprintf("no AVS data for country '%s'", req.Country), nil)
	}

	if blocked, err := s.storage.GetBlockedBin(ctx, req.Bin); err == nil {
		return nil, nil, NewBinBlockedError(req.Bin, blocked.Reason)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, NewInternalError("blocked bin check failed", err)
	}

	info, err := s.resolveBin(ctx, req.Bin)
	switch {
	case err == nil:
	case errors.Is(err, binlookup.ErrNotFound):
		// An unknown prefix is not fatal to generation: the synthesizer
		// falls back to default length assumptions.
		info = &models.BinInfo{Bin: req.Bin}
	default:
		return nil, nil, err
	}

	cards := make([]models.GeneratedCard, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		targetLength := info.TargetLength(s.synth.PickLength)
		number, err := s.synth.Synthesize(req.Bin, targetLength)
		if err != nil {
			if generator.IsValidation(err) {
				return nil, nil, NewValidationError("invalid prefix", err)
			}
			// Running out of checksum-valid candidates means the synthesizer
			// itself misbehaved, so it is logged as a defect.
			slog.Error("Card synthesis failed",
				"bin", req.Bin,
				"length", targetLength,
				"error", err,
			)
			return nil, nil, NewGenerationFailedError(err)
		}

		expiry := s.deriver.Expiry(info.Type)
		card := models.GeneratedCard{
			Number:    number,
			Formatted: models.FormatCardNumber(number),
			ShortCode: generator.ShortCode(number, expiry),
			Expiry:    expiry,
			Bin:       req.Bin,
			Brand:     info.Brand,
			Type:      info.Type,
			Country:   info.CountryCode,
		}
		if req.Country != "" {
			if postal, ok := s.deriver.PostalCode(req.Country); ok {
				card.PostalCode = postal
				card.Country = req.Country
			}
		}
		cards = append(cards, card)
	}

	slog.Info("Generated cards",
		"bin", req.Bin,
		"count", len(cards),
		"brand", info.Brand,
	)

	return cards, info, nil
}

// LookupBin resolves issuer metadata for a prefix.
func (s *Service) LookupBin(ctx context.Context, bin string) (*models.BinInfo, error) {
	if len(bin) < 6 || len(bin) > 8 {
		return nil, NewValidationError("bin must be 6 to 8 digits", nil)
	}
	for i := 0; i < len(bin); i++ {
		if bin[i] < '0' || bin[i] > '9' {
			return nil, NewValidationError("bin must contain only digits", nil)
		}
	}
	info, err := s.resolveBin(ctx, bin)
	if errors.Is(err, binlookup.ErrNotFound) {
		return nil, NewBinNotFoundError(bin)
	}
	return info, err
}

// resolveBin maps resolver infrastructure failures onto service errors while
// passing ErrNotFound through for the caller to interpret.
func (s *Service) resolveBin(ctx context.Context, bin string) (*models.BinInfo, error) {
	info, err := s.resolver.Lookup(ctx, bin)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, binlookup.ErrNotFound):
		return nil, err
	case errors.Is(err, binlookup.ErrUnavailable):
		return nil, NewProviderUnavailableError(err)
	default:
		return nil, NewInternalError("bin lookup failed", err)
	}
}
