package handlers

import (
	"encoding/json"
	"net/http"
)

// GetProfile handles GET /api/v1/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name          string   `json:"name"`
	Goal          string   `json:"goal"`
	Diet          string   `json:"diet"`
	Allergies     []string `json:"allergies"`
	Location      string   `json:"location"`
	CalorieTarget int      `json:"calorie_target"`
}

// UpdateProfile handles PUT /api/v1/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	user.Name = req.Name
	user.Goal = req.Goal
	user.Diet = req.Diet
	user.Allergies = req.Allergies
	user.Location = req.Location
	user.CalorieTarget = req.CalorieTarget

	if err := h.db.UpdateProfile(r.Context(), user); err != nil {
		h.serviceError(w, err)
		return
	}

	h.logger.Infow("profile updated", "user_id", userID)
	writeJSON(w, http.StatusOK, user)
}
