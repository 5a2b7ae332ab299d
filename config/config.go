package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers      string
	PaymentEventTopic string

	JWTSecret    string
	ServiceToken string

	EmailProvider string // "smtp" or "resend"
	ResendAPIKey  string
	EmailFrom     string
	AdminEmail    string

	FrontendURL string

	// Orders stuck in pending/pending longer than this are cancelled by
	// the reconciliation sweep. Zero disables the sweep.
	PendingOrderTTL time.Duration
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            getEnv("CURRENCY", "usd"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		PaymentEventTopic: getEnv("PAYMENT_EVENT_TOPIC", "payment-events"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		ServiceToken: os.Getenv("SERVICE_TOKEN"),

		EmailProvider: getEnv("EMAIL_PROVIDER", "smtp"),
		ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
		EmailFrom:     getEnv("EMAIL_FROM", "Spotted Avenue <orders@spottedavenue.dev>"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "ops@spottedavenue.dev"),

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		PendingOrderTTL: getDurationMinutes("PENDING_ORDER_TTL_MINUTES", 60),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" {
		return nil, fmt.Errorf("missing required postgres environment variables")
	}
	if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("missing required stripe environment variables")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDurationMinutes(key string, fallback int) time.Duration {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(fallback) * time.Minute
}
