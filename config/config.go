package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	RedisURL         string // optional; token cache falls back to memory
	KafkaBrokers     string
	KafkaTopic       string
	CORSAllowOrigins string

	PayPalClientID        string
	PayPalSecret          string
	PayPalMode            string // live|test
	PayPalIntent          string // capture|authorize
	ShippingPreference    string // no_shipping|get_from_file|set_provided_address
	ShippingEnabled       bool
	UpdateBillingProfile  bool
	UpdateShippingProfile bool
	PaymentSolution       string // smart_buttons|hosted_fields|redirect
	BrandName             string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8088"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBrokers:     getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:       getEnv("KAFKA_PAYMENT_EVENTS_TOPIC", "payment-events"),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000"),

		PayPalClientID:        os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:          os.Getenv("PAYPAL_SECRET"),
		PayPalMode:            getEnv("PAYPAL_MODE", "test"),
		PayPalIntent:          getEnv("PAYPAL_INTENT", "capture"),
		ShippingPreference:    getEnv("PAYPAL_SHIPPING_PREFERENCE", "get_from_file"),
		ShippingEnabled:       getBoolEnv("SHIPPING_ENABLED", true),
		UpdateBillingProfile:  getBoolEnv("PAYPAL_UPDATE_BILLING_PROFILE", true),
		UpdateShippingProfile: getBoolEnv("PAYPAL_UPDATE_SHIPPING_PROFILE", true),
		PaymentSolution:       getEnv("PAYPAL_PAYMENT_SOLUTION", "smart_buttons"),
		BrandName:             getEnv("BRAND_NAME", ""),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" ||
		cfg.PayPalClientID == "" || cfg.PayPalSecret == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	switch cfg.PayPalIntent {
	case "capture", "authorize":
	default:
		return nil, fmt.Errorf("invalid PAYPAL_INTENT %q", cfg.PayPalIntent)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
