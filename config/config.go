// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	DB struct {
		Host         string
		Port         string
		User         string
		Password     string
		DBName       string
		SSLMode      string
		MaxOpenConns int
		MaxIdleConns int
		ConnLifetime time.Duration
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	Stripe struct {
		SecretKey  string
		PublicKey  string
		WebhookKey string
		ProductID  string
		PriceID    string
		SuccessURL string
		CancelURL  string
	}
	AI struct {
		APIKey       string
		BaseURL      string
		Model        string
		MaxTokens    int
		Temperature  float64
		MaxAttempts  int
		RetryBackoff time.Duration
		CostPerToken float64
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		CacheTTL time.Duration
	}
	ShutdownTimeout time.Duration
}

// Load loads the configuration
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Create a new viper instance
	v := viper.New()

	// Set the config name (without extension)
	v.SetConfigName("config")

	// Add supported config file types
	v.SetConfigType("yaml")
	v.SetConfigType("json")

	// Add paths where to look for the config file
	v.AddConfigPath(".")                // Look in current directory
	v.AddConfigPath("./config")         // Look in config subdirectory
	v.AddConfigPath("../config")        // Look in sibling config directory
	v.AddConfigPath("$HOME/.nutriplan") // Look in home directory

	// Set default values
	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Server.ReadTimeout", 10*time.Second)
	v.SetDefault("Server.WriteTimeout", 30*time.Second)
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 10)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)
	v.SetDefault("Auth.TokenTTL", 24*time.Hour)
	v.SetDefault("AI.Model", "gpt-4")
	v.SetDefault("AI.MaxTokens", 2500)
	v.SetDefault("AI.Temperature", 0.7)
	v.SetDefault("AI.MaxAttempts", 3)
	v.SetDefault("AI.RetryBackoff", 2*time.Second)
	v.SetDefault("AI.CostPerToken", 0.00003)
	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.CacheTTL", time.Hour)

	// Enable environment variables to override config values
	v.AutomaticEnv()

	// Try to read config file
	err := v.ReadInConfig()

	// If can't find config file, fall back to environment variables
	if err != nil {
		fmt.Printf("Config file not found: %v\n", err)
		fmt.Println("Loading configuration from environment variables...")
		return fromEnv(), nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			envValue := os.Getenv(envVar)
			if envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	// Unmarshal config to struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// fromEnv builds a minimal config from environment variables when no
// config file is present.
func fromEnv() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnvOr("SERVER_PORT", "8080")
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.DB.Host = getEnvOr("DB_HOST", "localhost")
	cfg.DB.Port = getEnvOr("DB_PORT", "5432")
	cfg.DB.User = getEnvOr("DB_USER", "postgres")
	cfg.DB.Password = getEnvOr("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnvOr("DB_NAME", "nutriplan")
	cfg.DB.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
	cfg.DB.MaxOpenConns = 20
	cfg.DB.MaxIdleConns = 10
	cfg.DB.ConnLifetime = 5 * time.Minute
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.Stripe.PublicKey = os.Getenv("STRIPE_PUBLIC_KEY")
	cfg.Stripe.WebhookKey = os.Getenv("STRIPE_WEBHOOK_KEY")
	cfg.Stripe.ProductID = os.Getenv("STRIPE_PRODUCT_ID")
	cfg.Stripe.PriceID = os.Getenv("STRIPE_PRICE_ID")
	cfg.Stripe.SuccessURL = getEnvOr("STRIPE_SUCCESS_URL", "http://localhost:3000/billing/success")
	cfg.Stripe.CancelURL = getEnvOr("STRIPE_CANCEL_URL", "http://localhost:3000/billing/cancel")
	cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AI.BaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.AI.Model = getEnvOr("OPENAI_MODEL", "gpt-4")
	cfg.AI.MaxTokens = 2500
	cfg.AI.Temperature = 0.7
	cfg.AI.MaxAttempts = 3
	cfg.AI.RetryBackoff = 2 * time.Second
	cfg.AI.CostPerToken = 0.00003
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Redis.DB = n
		}
	}
	cfg.Redis.CacheTTL = time.Hour
	cfg.ShutdownTimeout = 10 * time.Second

	return cfg
}

// Helper function to get environment variable with default value
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
