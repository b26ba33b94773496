// Package api implements the HTTP layer: request handlers, the quota
// authorization middleware, and route registration.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"binforge/internal/cards"
	"binforge/internal/models"
	"binforge/internal/quota"
	"binforge/internal/storage"
	"binforge/internal/version"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	cardService cards.ServiceInterface
	storage     storage.Storage
	quota       *quota.Manager
	config      *models.Config
	startTime   time.Time
}

// NewHandlers creates the handler set. The quota manager may be nil when
// authentication is disabled; in that case the middleware is never mounted.
func NewHandlers(cardService cards.ServiceInterface, store storage.Storage, quotaManager *quota.Manager, config *models.Config) *Handlers {
	return &Handlers{
		cardService: cardService,
		storage:     store,
		quota:       quotaManager,
		config:      config,
		startTime:   time.Now(),
	}
}

// HealthCheck reports service health, including storage connectivity.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = version.Version
	response.Uptime = time.Since(h.startTime).Round(time.Second).String()

	if err := h.storage.Ping(r.Context()); err != nil {
		response.Status = models.StatusUnhealthy
		response.AddComponent("storage", models.StatusUnhealthy, err.Error())
		h.writeJSONResponse(w, http.StatusServiceUnavailable, response)
		return
	}
	response.AddComponent("storage", models.StatusHealthy, "")

	h.writeJSONResponse(w, http.StatusOK, response)
}

func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, code string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, code))
}

// writeServiceError translates a card service error to its HTTP response.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	if svcErr, ok := err.(*cards.ServiceError); ok {
		h.writeErrorResponse(w, svcErr.StatusCode, svcErr.Message, svcErr.Code)
		return
	}
	slog.Error("Unhandled service error", "error", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", models.ErrorCodeInternalError)
}
