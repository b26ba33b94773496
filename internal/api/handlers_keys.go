package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"binforge/internal/models"
	"binforge/internal/storage"
)

// apiKeyResponse is the metadata view of a key. The raw key value and its
// hash are never included; the display prefix is enough to correlate.
type apiKeyResponse struct {
	ID              string      `json:"id"`
	OwnerID         string      `json:"owner_id"`
	Name            string      `json:"name"`
	Tier            models.Tier `json:"tier"`
	Prefix          string      `json:"prefix"`
	Permissions     []string    `json:"permissions"`
	PerMinuteLimit  int         `json:"per_minute_limit"`
	PerDayLimit     int         `json:"per_day_limit"`
	UsageCountTotal int64       `json:"usage_count_total"`
	DailyUsageCount int         `json:"daily_usage_count"`
	DailyResetAt    time.Time   `json:"daily_reset_at"`
	Active          bool        `json:"active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
}

func toAPIKeyResponse(key *models.APIKey) *apiKeyResponse {
	return &apiKeyResponse{
		ID:              key.ID,
		OwnerID:         key.OwnerID,
		Name:            key.Name,
		Tier:            key.Tier,
		Prefix:          key.Prefix,
		Permissions:     models.PermissionStrings(key.Permissions),
		PerMinuteLimit:  key.PerMinuteLimit,
		PerDayLimit:     key.PerDayLimit,
		UsageCountTotal: key.UsageCountTotal,
		DailyUsageCount: key.DailyUsageCount,
		DailyResetAt:    key.DailyResetAt,
		Active:          key.Active,
		CreatedAt:       key.CreatedAt,
		UpdatedAt:       key.UpdatedAt,
		ExpiresAt:       key.ExpiresAt,
	}
}

// createKeyResponse carries the raw key alongside the metadata view. The
// raw value appears here exactly once; the stored hash never leaves the
// server.
type createKeyResponse struct {
	Key    string          `json:"key"`
	APIKey *apiKeyResponse `json:"api_key"`
}

// tierLimits returns the configured limits for a tier, falling back to the
// built-in table when the operator hasn't overridden them.
func (h *Handlers) tierLimits(tier models.Tier) models.TierLimits {
	if limits, ok := h.config.Security.Tiers[tier]; ok {
		return limits
	}
	return models.DefaultTierLimits()[tier]
}

// CreateAPIKey handles POST /api/v1/keys. The raw key appears once in the
// response and is never retrievable afterwards.
func (h *Handlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req models.CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body", models.ErrorCodeBadRequest)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), models.ErrorCodeInvalidRequest)
		return
	}

	rawKey, err := models.GenerateAPIKey()
	if err != nil {
		slog.Error("Failed to generate API key", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to generate key", models.ErrorCodeInternalError)
		return
	}

	permissions, err := models.ParsePermissionRules(req.Permissions)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), models.ErrorCodeInvalidRequest)
		return
	}

	key := models.NewAPIKey(models.NewKeyID(), req.OwnerID, req.Name, rawKey, req.Tier, h.tierLimits(req.Tier), permissions)
	if req.ExpiresInDays > 0 {
		expiresAt := time.Now().UTC().AddDate(0, 0, req.ExpiresInDays)
		key.ExpiresAt = &expiresAt
	}

	if err := h.storage.CreateAPIKey(r.Context(), key); err != nil {
		slog.Error("Failed to store API key", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to store key", models.ErrorCodeInternalError)
		return
	}

	slog.Info("API key created",
		"event", "security_audit",
		"key_id", key.ID,
		"key_name", key.Name,
		"tier", key.Tier,
		"actor_key_id", actorKeyID(r),
	)

	h.writeJSONResponse(w, http.StatusCreated, &createKeyResponse{
		Key:    rawKey,
		APIKey: toAPIKeyResponse(key),
	})
}

// ListAPIKeys handles GET /api/v1/keys.
func (h *Handlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.storage.ListAPIKeys(r.Context())
	if err != nil {
		slog.Error("Failed to list API keys", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list keys", models.ErrorCodeInternalError)
		return
	}

	responses := make([]*apiKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, toAPIKeyResponse(key))
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"keys":  responses,
		"count": len(responses),
	})
}

// GetAPIKey handles GET /api/v1/keys/{id}.
func (h *Handlers) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	key, ok := h.loadKey(w, r)
	if !ok {
		return
	}
	h.writeJSONResponse(w, http.StatusOK, toAPIKeyResponse(key))
}

// UpdateAPIKey handles PATCH /api/v1/keys/{id}. Only non-nil fields are
// applied; changing the tier re-applies that tier's limits.
func (h *Handlers) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, ok := h.loadKey(w, r)
	if !ok {
		return
	}

	var req models.UpdateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body", models.ErrorCodeBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), models.ErrorCodeInvalidRequest)
		return
	}

	if req.Name != nil {
		key.Name = *req.Name
	}
	if req.Active != nil {
		key.Active = *req.Active
	}
	if req.Tier != nil {
		key.Tier = *req.Tier
		limits := h.tierLimits(*req.Tier)
		key.PerMinuteLimit = limits.PerMinute
		key.PerDayLimit = limits.PerDay
	}
	if req.Permissions != nil {
		permissions, err := models.ParsePermissionRules(req.Permissions)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), models.ErrorCodeInvalidRequest)
			return
		}
		key.Permissions = permissions
	}
	key.UpdatedAt = time.Now().UTC()

	if err := h.storage.UpdateAPIKey(r.Context(), key); err != nil {
		slog.Error("Failed to update API key", "error", err, "key_id", key.ID)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update key", models.ErrorCodeInternalError)
		return
	}

	slog.Info("API key updated",
		"event", "security_audit",
		"key_id", key.ID,
		"actor_key_id", actorKeyID(r),
	)

	h.writeJSONResponse(w, http.StatusOK, toAPIKeyResponse(key))
}

// DeleteAPIKey handles DELETE /api/v1/keys/{id}.
func (h *Handlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := h.storage.DeleteAPIKey(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "API key not found", models.ErrorCodeNotFound)
			return
		}
		slog.Error("Failed to delete API key", "error", err, "key_id", id)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete key", models.ErrorCodeInternalError)
		return
	}

	slog.Info("API key deleted",
		"event", "security_audit",
		"key_id", id,
		"actor_key_id", actorKeyID(r),
	)

	w.WriteHeader(http.StatusNoContent)
}

// GetKeyUsage handles GET /api/v1/keys/{id}/usage: quota state plus the most
// recent usage records.
func (h *Handlers) GetKeyUsage(w http.ResponseWriter, r *http.Request) {
	key, ok := h.loadKey(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.writeErrorResponse(w, http.StatusBadRequest, "limit must be between 1 and 500", models.ErrorCodeInvalidRequest)
			return
		}
		limit = parsed
	}

	records, err := h.storage.UsageForKey(r.Context(), key.ID, limit)
	if err != nil {
		slog.Error("Failed to load usage records", "error", err, "key_id", key.ID)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load usage", models.ErrorCodeInternalError)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"usage": &models.KeyUsageResponse{
			KeyID:           key.ID,
			Tier:            key.Tier,
			UsageCountTotal: key.UsageCountTotal,
			DailyUsageCount: key.DailyUsageCount,
			PerMinuteLimit:  key.PerMinuteLimit,
			PerDayLimit:     key.PerDayLimit,
			DailyResetAt:    key.DailyResetAt,
		},
		"records": records,
	})
}

func (h *Handlers) loadKey(w http.ResponseWriter, r *http.Request) (*models.APIKey, bool) {
	vars := mux.Vars(r)
	id := vars["id"]

	key, err := h.storage.GetAPIKey(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "API key not found", models.ErrorCodeNotFound)
			return nil, false
		}
		slog.Error("Failed to load API key", "error", err, "key_id", id)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load key", models.ErrorCodeInternalError)
		return nil, false
	}
	return key, true
}

// actorKeyID identifies the authenticated caller for audit log entries.
func actorKeyID(r *http.Request) string {
	if key := keyFromContext(r.Context()); key != nil {
		return key.ID
	}
	return "anonymous"
}
