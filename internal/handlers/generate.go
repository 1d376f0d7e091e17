package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"nutriplan/internal/models"
	"nutriplan/internal/usage"
)

// Generate handles POST /api/v1/generate. Quota exhaustion is reported
// before any upstream call; upstream failures surface as 502 after the
// client's retry budget is spent.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	if !req.Feature.Valid() {
		writeError(w, http.StatusBadRequest, "unknown feature")
		return
	}
	if req.Feature == models.FeatureNutrition && req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required for nutrition requests")
		return
	}

	resp, err := h.generation.GenerateContent(r.Context(), &req)
	if err != nil {
		if errors.Is(err, usage.ErrQuotaExceeded) {
			writeError(w, http.StatusTooManyRequests, "generation limit reached for your plan")
			return
		}
		h.logger.Errorw("generation failed", "user_id", userID, "feature", req.Feature, "error", err)
		writeError(w, http.StatusBadGateway, "generation failed, please try again")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Usage handles GET /api/v1/usage.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	quota, err := h.generation.CheckUserUsage(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quota)
}
