package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan/internal/db"
	"nutriplan/internal/usage"
	"nutriplan/pkg/logger"
)

func TestHealth(t *testing.T) {
	h := &Handler{logger: logger.NewNop()}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestServiceErrorMapping(t *testing.T) {
	h := &Handler{logger: logger.NewNop()}

	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"quota", usage.ErrQuotaExceeded, http.StatusTooManyRequests, "generation limit reached"},
		{"not found", db.ErrNotFound, http.StatusNotFound, "not found"},
		{"wrapped not found", errors.Join(errors.New("lookup"), db.ErrNotFound), http.StatusNotFound, "not found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.serviceError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestPathID(t *testing.T) {
	newReq := func(id string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/meal-plans/"+id, nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("valid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		id, ok := pathID(rec, newReq("42"))
		require.True(t, ok)
		assert.Equal(t, int64(42), id)
	})

	for _, bad := range []string{"abc", "0", "-3", ""} {
		t.Run("invalid "+bad, func(t *testing.T) {
			rec := httptest.NewRecorder()
			_, ok := pathID(rec, newReq(bad))
			assert.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCurrentUserUnauthenticated(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)

	_, ok := currentUser(rec, req)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
