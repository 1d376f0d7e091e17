// Package handlers provides the JSON HTTP API consumed by the web UI.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nutriplan/internal/auth"
	"nutriplan/internal/db"
	"nutriplan/internal/generation"
	"nutriplan/internal/models"
	"nutriplan/internal/payment"
	"nutriplan/internal/usage"
	"nutriplan/pkg/logger"
)

// Database is the persistence surface the handlers use. Satisfied by
// *db.PostgresDB.
type Database interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByStripeCustomer(ctx context.Context, customerID string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateSubscription(ctx context.Context, userID int64, plan, status, customerID, subscriptionID string) error

	ListMealPlans(ctx context.Context, userID int64) ([]models.MealPlan, error)
	GetMealPlan(ctx context.Context, userID, id int64) (*models.MealPlan, error)
	DeleteMealPlan(ctx context.Context, userID, id int64) error
	ListRecipes(ctx context.Context, userID int64) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, userID, id int64) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, id int64) error
	ListShoppingLists(ctx context.Context, userID int64) ([]models.ShoppingList, error)
	GetShoppingList(ctx context.Context, userID, id int64) (*models.ShoppingList, error)
	DeleteShoppingList(ctx context.Context, userID, id int64) error

	SavePayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, stripePaymentID, status string) error
}

type Handler struct {
	db           Database
	auth         *auth.Manager
	generation   *generation.Service
	stripeClient *payment.StripeClient
	logger       *logger.Logger
}

func New(database Database, authMgr *auth.Manager, genSvc *generation.Service, stripeClient *payment.StripeClient, log *logger.Logger) *Handler {
	return &Handler{
		db:           database,
		auth:         authMgr,
		generation:   genSvc,
		stripeClient: stripeClient,
		logger:       log.Named("http"),
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serviceError maps pipeline errors onto HTTP statuses.
func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usage.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "generation limit reached for your plan")
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	default:
		h.logger.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// currentUser pulls the authenticated user ID out of the context.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return id, true
}

// pathID parses the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
