package config

import "os"

// GatewayConfig locates the hosted payment-link API
type GatewayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string // empty disables signature verification (local dev only)
	CallbackBase  string // public base URL for payment-link callbacks
}

// Config is assembled once at startup and injected everywhere; no
// package holds config globals
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	Currency  string
	Gateway   GatewayConfig
}

func Load() Config {
	return Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "quickbite.db"),
		JWTSecret: getEnv("JWT_SECRET", "quickbite_super_secret_2024"),
		Currency:  getEnv("CURRENCY", "INR"),
		Gateway: GatewayConfig{
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:         os.Getenv("GATEWAY_KEY_ID"),
			KeySecret:     os.Getenv("GATEWAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
			CallbackBase:  getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
