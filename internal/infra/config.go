package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	JWTSecret           string
	ClientURL           string
	CORSAllowedOrigins  []string
	GeoIPDBPath         string
	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string
	CheckoutMinAmount   int64
	CheckoutMaxAmount   int64
	ProviderTimeout     time.Duration
	WorkerPollInterval  time.Duration
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	RateLimitPerMin     int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	clientURL := strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/")
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		ClientURL:           clientURL,
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", clientURL)),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		StripeSecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		PaymentCurrency:     strings.ToUpper(getEnv("PAYMENT_CURRENCY", "USD")),
		CheckoutMinAmount:   int64(getEnvInt("CHECKOUT_MIN_AMOUNT", 50)),
		CheckoutMaxAmount:   int64(getEnvInt("CHECKOUT_MAX_AMOUNT", 10_000_000)),
		ProviderTimeout:     time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 10)),
		WorkerPollInterval:  time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 2)),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.CheckoutMinAmount <= 0 || cfg.CheckoutMaxAmount < cfg.CheckoutMinAmount {
		return nil, fmt.Errorf("invalid checkout bounds: min=%d max=%d", cfg.CheckoutMinAmount, cfg.CheckoutMaxAmount)
	}

	return cfg, nil
}

// InMemoryStore reports whether the process should run without PostgreSQL.
func (c *Config) InMemoryStore() bool {
	return strings.HasPrefix(c.DatabaseURL, "memory://")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
