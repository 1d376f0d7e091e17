// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutriplan/config"
	"nutriplan/internal/ai"
	"nutriplan/internal/auth"
	"nutriplan/internal/cache"
	"nutriplan/internal/db"
	"nutriplan/internal/generation"
	"nutriplan/internal/handlers"
	"nutriplan/internal/payment"
	"nutriplan/internal/server"
	"nutriplan/internal/usage"
	"nutriplan/pkg/logger"
)

func main() {
	// Initialize logger
	l := logger.New()
	l.Info("Starting NutriPlan API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}

	// Validate critical configuration
	if cfg.Auth.JWTSecret == "" {
		l.Fatal("JWT secret is not configured")
	}
	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookKey == "" || cfg.Stripe.PriceID == "" {
		l.Fatal("Stripe configuration is incomplete")
	}
	if cfg.AI.APIKey == "" {
		l.Fatal("OpenAI API key is not configured")
	}

	// Initialize database connection with retry
	var database *db.PostgresDB
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgresDB(cfg.DB)
		if err == nil {
			break
		}
		l.Error("Failed to connect to database, retrying...", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		l.Fatal("Failed to connect to database after multiple attempts", err)
	}
	defer database.Close()

	// Apply schema migrations
	if err := database.Migrate(context.Background()); err != nil {
		l.Fatal("Failed to run migrations", err)
	}

	// Initialize Stripe client
	stripeClient := payment.NewStripeClient(cfg.Stripe)

	// Initialize generation client and response cache
	aiClient := ai.NewClient(ai.Options{
		APIKey:       cfg.AI.APIKey,
		BaseURL:      cfg.AI.BaseURL,
		Model:        cfg.AI.Model,
		MaxTokens:    cfg.AI.MaxTokens,
		Temperature:  cfg.AI.Temperature,
		MaxAttempts:  cfg.AI.MaxAttempts,
		RetryBackoff: cfg.AI.RetryBackoff,
		CostPerToken: cfg.AI.CostPerToken,
	}, l)
	responseCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL, l)
	defer responseCache.Close()

	// Wire services
	authMgr := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	usageSvc := usage.NewService(database, l)
	genSvc := generation.NewService(database, aiClient, usageSvc, responseCache, l)
	h := handlers.New(database, authMgr, genSvc, stripeClient, l)

	// Start HTTP server
	httpServer := server.NewServer(cfg.Server.Port, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, h, authMgr, l)
	go func() {
		l.Info("Starting HTTP server...")
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down server...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}

	l.Info("Server stopped successfully")
}
