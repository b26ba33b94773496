package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binforge/internal/api"
	"binforge/internal/binlookup"
	"binforge/internal/cards"
	"binforge/internal/generator"
	"binforge/internal/models"
	"binforge/internal/quota"
	"binforge/internal/storage"
)

// Integration tests that exercise the entire system end-to-end: SQLite
// persistence, quota authorization, and the full generation pipeline.

type testServer struct {
	*httptest.Server
	store storage.Storage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "integration.db")
	store, err := storage.NewSQLiteStorage(storage.Config{Type: "sqlite", ConnectionString: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	resolver := binlookup.NewResolver(store, nil)
	synth := generator.NewSynthesizer()
	deriver := generator.NewDeriver()
	cardService := cards.NewService(store, resolver, synth, deriver, 10)

	manager := quota.NewManager(store)
	t.Cleanup(manager.Close)

	cfg := models.NewDefaultConfig()
	cfg.Security.EnableAuth = true

	handlers := api.NewHandlers(cardService, store, manager, cfg)
	router := api.SetupRoutes(handlers, cfg)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, store: store}
}

func (ts *testServer) seedAdminKey(t *testing.T) string {
	t.Helper()
	raw, err := models.GenerateAPIKey()
	require.NoError(t, err)

	rules, err := models.ParsePermissionRules([]string{"*"})
	require.NoError(t, err)
	key := models.NewAPIKey(models.NewKeyID(), "ops", "admin", raw, models.TierEnterprise,
		models.DefaultTierLimits()[models.TierEnterprise], rules)
	require.NoError(t, ts.store.CreateAPIKey(context.Background(), key))
	return raw
}

func (ts *testServer) do(t *testing.T, method, path, rawKey string, payload interface{}) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if rawKey != "" {
		req.Header.Set("Authorization", "Bearer "+rawKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// mintedKey mirrors the create-key response shape: the raw key plus the
// metadata fields the tests need.
type mintedKey struct {
	Key    string `json:"key"`
	APIKey struct {
		ID string `json:"id"`
	} `json:"api_key"`
}

func TestIntegration_FullGenerationFlow(t *testing.T) {
	ts := newTestServer(t)
	adminKey := ts.seedAdminKey(t)
	ctx := context.Background()

	// Step 1: seed issuer metadata and a deny-list entry.
	require.NoError(t, ts.store.SaveBin(ctx, &models.BinInfo{
		Bin:         "453201",
		Brand:       "VISA",
		Issuer:      "Test Bank",
		Type:        "DEBIT",
		CountryCode: "US",
	}))
	require.NoError(t, ts.store.SaveBlockedBin(ctx, &models.BlockedBin{
		Bin:    "411111",
		Reason: "sandbox prefix",
	}))

	// Step 2: mint a pro-tier key over the API with the admin key.
	resp := ts.do(t, "POST", "/api/v1/keys", adminKey, models.CreateKeyRequest{
		Name:        "partner",
		OwnerID:     "partner-1",
		Tier:        models.TierPro,
		Permissions: []string{"/api/v1/cards/*", "/api/v1/bins/*"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created mintedKey
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.Key)
	partnerKey := created.Key

	// Step 3: generate cards with the partner key.
	resp = ts.do(t, "POST", "/api/v1/cards/generate", partnerKey, models.GenerateCardsRequest{
		Bin:   "453201",
		Count: 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var generated models.GenerateCardsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&generated))
	resp.Body.Close()

	require.Len(t, generated.Cards, 5)
	assert.Equal(t, "VISA", generated.Brand)
	assert.Equal(t, 4999, generated.RemainingDay)
	for _, card := range generated.Cards {
		assert.Len(t, card.Number, 16)
		assert.Equal(t, "453201", card.Number[:6])
		assert.True(t, luhnValid(card.Number), "number %s fails checksum", card.Number)
		assert.Len(t, card.ShortCode, 3)
		assert.Regexp(t, `^\d{2}/\d{4}$`, card.Expiry)
	}

	// Step 4: the blocked prefix is rejected.
	resp = ts.do(t, "POST", "/api/v1/cards/generate", partnerKey, models.GenerateCardsRequest{
		Bin:   "411111",
		Count: 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Step 5: BIN lookup over the API.
	resp = ts.do(t, "GET", "/api/v1/bins/453201", partnerKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lookup models.BinLookupResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lookup))
	resp.Body.Close()
	assert.Equal(t, "Test Bank", lookup.Issuer)

	// Step 6: the partner key cannot manage keys.
	resp = ts.do(t, "GET", "/api/v1/keys", partnerKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestIntegration_QuotaEnforcement(t *testing.T) {
	ts := newTestServer(t)
	adminKey := ts.seedAdminKey(t)

	// Mint a free-tier key, then squeeze its per-minute budget by patching
	// daily usage directly through storage: 3 calls allowed, 4th denied.
	resp := ts.do(t, "POST", "/api/v1/keys", adminKey, models.CreateKeyRequest{
		Name:        "tiny",
		OwnerID:     "owner",
		Tier:        models.TierFree,
		Permissions: []string{"/api/v1/cards/*"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created mintedKey
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	key, err := ts.store.GetAPIKey(context.Background(), created.APIKey.ID)
	require.NoError(t, err)
	key.PerMinuteLimit = 3
	require.NoError(t, ts.store.UpdateAPIKey(context.Background(), key))

	for i := 0; i < 3; i++ {
		resp := ts.do(t, "POST", "/api/v1/cards/generate", created.Key, models.GenerateCardsRequest{
			Bin:   "520082",
			Count: 1,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d should be allowed", i+1)
		resp.Body.Close()
	}

	resp = ts.do(t, "POST", "/api/v1/cards/generate", created.Key, models.GenerateCardsRequest{
		Bin:   "520082",
		Count: 1,
	})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	var denial models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&denial))
	resp.Body.Close()
	assert.Equal(t, models.ErrorCodeRateLimited, denial.Code)
	assert.Equal(t, "minute", denial.Window)

	// Only the allowed calls consumed daily quota.
	key, err = ts.store.GetAPIKey(context.Background(), created.APIKey.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, key.DailyUsageCount)
}

func TestIntegration_RevokedKeyRejected(t *testing.T) {
	ts := newTestServer(t)
	adminKey := ts.seedAdminKey(t)

	resp := ts.do(t, "POST", "/api/v1/keys", adminKey, models.CreateKeyRequest{
		Name:        "doomed",
		OwnerID:     "owner",
		Tier:        models.TierFree,
		Permissions: []string{"*"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created mintedKey
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	// Revoke over the API with the admin key.
	active := false
	resp = ts.do(t, "PATCH", fmt.Sprintf("/api/v1/keys/%s", created.APIKey.ID), adminKey,
		models.UpdateKeyRequest{Active: &active})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, "POST", "/api/v1/cards/generate", created.Key, models.GenerateCardsRequest{
		Bin:   "453201",
		Count: 1,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
