// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"nutriplan/internal/auth"
	"nutriplan/internal/handlers"
	"nutriplan/pkg/logger"
)

type Server struct {
	server *http.Server
	logger *logger.Logger
}

func NewServer(port string, readTimeout, writeTimeout time.Duration, h *handlers.Handler, authMgr *auth.Manager, log *logger.Logger) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)

	// Health check endpoint
	r.Get("/health", h.Health)

	// Stripe webhook (signature-verified, no bearer auth)
	r.Post("/webhook/stripe", h.HandleStripeWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Everything below requires a valid token
		r.Group(func(r chi.Router) {
			r.Use(authMgr.Middleware)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)

			r.Get("/usage", h.Usage)
			r.Post("/generate", h.Generate)

			r.Route("/meal-plans", func(r chi.Router) {
				r.Get("/", h.ListMealPlans)
				r.Post("/", h.SaveMealPlan)
				r.Get("/{id}", h.GetMealPlan)
				r.Delete("/{id}", h.DeleteMealPlan)
			})
			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", h.ListRecipes)
				r.Post("/", h.SaveRecipe)
				r.Get("/{id}", h.GetRecipe)
				r.Delete("/{id}", h.DeleteRecipe)
			})
			r.Route("/shopping-lists", func(r chi.Router) {
				r.Get("/", h.ListShoppingLists)
				r.Post("/", h.SaveShoppingList)
				r.Get("/{id}", h.GetShoppingList)
				r.Delete("/{id}", h.DeleteShoppingList)
			})

			r.Post("/billing/checkout", h.CreateCheckout)
		})
	})

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: log,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request with latency and status.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	l := log.Named("request")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			l.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
