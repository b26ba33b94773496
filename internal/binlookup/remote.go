package binlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"binforge/internal/models"
	"binforge/internal/ratelimit"
)

// providerKey names the BIN dataset bucket in the provider rate registry.
const providerKey = "bin_dataset"

// RemoteSource fetches issuer metadata from an external BIN dataset over
// HTTP. Every call first draws from the provider's token bucket; a drained
// bucket yields ErrUnavailable immediately, never a queued wait.
type RemoteSource struct {
	baseURL string
	client  *http.Client
	buckets *ratelimit.Registry
}

// NewRemoteSource creates a remote lookup source from the provider
// configuration. The configured timeout caps every outbound call.
func NewRemoteSource(cfg models.ProviderConfig, buckets *ratelimit.Registry) *RemoteSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	buckets.Register(providerKey, cfg.Rate)
	return &RemoteSource{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
		buckets: buckets,
	}
}

// remoteBinPayload is the provider's wire format.
type remoteBinPayload struct {
	Scheme  string `json:"scheme"`
	Type    string `json:"type"`
	Brand   string `json:"brand"`
	Prepaid bool   `json:"prepaid"`
	Country struct {
		Alpha2 string `json:"alpha2"`
		Name   string `json:"name"`
	} `json:"country"`
	Bank struct {
		Name string `json:"name"`
	} `json:"bank"`
}

// Lookup fetches issuer metadata from the provider.
func (r *RemoteSource) Lookup(ctx context.Context, bin string) (*models.BinInfo, error) {
	if !r.buckets.Allow(providerKey) {
		slog.Debug("BIN provider budget spent", "bin", bin)
		return nil, ErrUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+bin, nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var payload remoteBinPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	return payload.toBinInfo(bin), nil
}

func (p *remoteBinPayload) toBinInfo(bin string) *models.BinInfo {
	brand := strings.ToUpper(p.Scheme)
	if p.Brand != "" {
		brand = strings.ToUpper(p.Brand)
	}
	cardType := strings.ToUpper(p.Type)
	if p.Prepaid {
		cardType = strings.TrimSpace(cardType + " PREPAID")
	}
	return &models.BinInfo{
		Bin:         bin,
		Brand:       brand,
		Type:        cardType,
		Issuer:      p.Bank.Name,
		CountryCode: strings.ToUpper(p.Country.Alpha2),
		CountryName: p.Country.Name,
		CreatedAt:   time.Now().UTC(),
	}
}
