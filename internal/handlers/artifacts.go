package handlers

import (
	"encoding/json"
	"net/http"
)

type saveArtifactRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func decodeSaveRequest(w http.ResponseWriter, r *http.Request) (*saveArtifactRequest, bool) {
	var req saveArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return nil, false
	}
	return &req, true
}

// SaveMealPlan handles POST /api/v1/meal-plans.
func (h *Handler) SaveMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeSaveRequest(w, r)
	if !ok {
		return
	}

	plan, err := h.generation.SaveMealPlan(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// ListMealPlans handles GET /api/v1/meal-plans.
func (h *Handler) ListMealPlans(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	plans, err := h.db.ListMealPlans(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// GetMealPlan handles GET /api/v1/meal-plans/{id}.
func (h *Handler) GetMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	plan, err := h.db.GetMealPlan(r.Context(), userID, id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// DeleteMealPlan handles DELETE /api/v1/meal-plans/{id}.
func (h *Handler) DeleteMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteMealPlan(r.Context(), userID, id); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveRecipe handles POST /api/v1/recipes.
func (h *Handler) SaveRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeSaveRequest(w, r)
	if !ok {
		return
	}

	recipe, err := h.generation.SaveRecipe(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// ListRecipes handles GET /api/v1/recipes.
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	recipes, err := h.db.ListRecipes(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// GetRecipe handles GET /api/v1/recipes/{id}.
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	recipe, err := h.db.GetRecipe(r.Context(), userID, id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// DeleteRecipe handles DELETE /api/v1/recipes/{id}.
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteRecipe(r.Context(), userID, id); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveShoppingList handles POST /api/v1/shopping-lists.
func (h *Handler) SaveShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeSaveRequest(w, r)
	if !ok {
		return
	}

	list, err := h.generation.SaveShoppingList(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// ListShoppingLists handles GET /api/v1/shopping-lists.
func (h *Handler) ListShoppingLists(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	lists, err := h.db.ListShoppingLists(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// GetShoppingList handles GET /api/v1/shopping-lists/{id}.
func (h *Handler) GetShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	list, err := h.db.GetShoppingList(r.Context(), userID, id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DeleteShoppingList handles DELETE /api/v1/shopping-lists/{id}.
func (h *Handler) DeleteShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteShoppingList(r.Context(), userID, id); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
