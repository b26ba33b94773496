package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"binforge/internal/models"
)

// GenerateCards handles POST /api/v1/cards/generate.
func (h *Handlers) GenerateCards(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body", models.ErrorCodeBadRequest)
		return
	}

	generated, info, err := h.cardService.GenerateCards(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response := &models.GenerateCardsResponse{
		Cards:           generated,
		Count:           len(generated),
		Bin:             req.Bin,
		RemainingMinute: -1,
		RemainingDay:    -1,
	}
	if info != nil {
		response.Brand = info.Brand
	}
	if decision, ok := decisionFromContext(r.Context()); ok {
		response.RemainingMinute = decision.RemainingMinute
		response.RemainingDay = decision.RemainingDay
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// LookupBin handles GET /api/v1/bins/{bin}.
func (h *Handlers) LookupBin(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bin := vars["bin"]

	info, err := h.cardService.LookupBin(r.Context(), bin)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var response models.BinLookupResponse
	response.FromBinInfo(info)
	h.writeJSONResponse(w, http.StatusOK, &response)
}
