package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type ShippingConfig struct {
	// FlatFee is charged unless the order subtotal exceeds FreeThreshold.
	FlatFee       int64
	FreeThreshold int64
}

type Config struct {
	App struct {
		Port      string
		PublicURL string
	}
	Postgres PostgresConfig
	Stripe   StripeConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Shipping ShippingConfig
}

func Load(path string) (*Config, error) {
	if path != "" {
		err := godotenv.Load(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getEnv("APP_PORT", "8080")
	cfg.App.PublicURL = getEnv("PUBLIC_URL", "http://localhost:3000")

	cfg.Postgres.Host = mustEnv("DB_HOST")
	cfg.Postgres.Port = mustEnv("DB_PORT")
	cfg.Postgres.User = mustEnv("DB_USER")
	cfg.Postgres.Password = mustEnv("DB_PASSWORD")
	cfg.Postgres.DBName = mustEnv("DB_NAME")
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(getEnvInt("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute)

	cfg.Stripe.SecretKey = mustEnv("STRIPE_SECRET_KEY")
	cfg.Stripe.WebhookSecret = mustEnv("STRIPE_WEBHOOK_SECRET")
	cfg.Stripe.Currency = getEnv("STRIPE_CURRENCY", "clp")

	cfg.JWT.Secret = mustEnv("JWT_SECRET")
	cfg.JWT.TTL = getEnvDuration("JWT_TTL", 24*time.Hour)

	cfg.SMTP.Host = getEnv("SMTP_HOST", "")
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", 587)
	cfg.SMTP.User = getEnv("SMTP_USER", "")
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	cfg.SMTP.From = getEnv("SMTP_FROM", "")

	cfg.Shipping.FlatFee = getEnvInt64("ENVIO_COSTO", 10000)
	cfg.Shipping.FreeThreshold = getEnvInt64("ENVIO_GRATIS_DESDE", 50000)

	return cfg, nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s is required", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, v)
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, v)
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s must be a duration, got %q", key, v)
	}
	return d
}
