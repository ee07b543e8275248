package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	Secret             string
	DatabaseDSN        string
	HTTPPort           string
	UploadDir          string
	PaymentSuccessRate float64
	Production         bool
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "file:medistore.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads/prescriptions"
	}

	successRate := 0.9
	if raw := os.Getenv("PAYMENT_SUCCESS_RATE"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			log.Printf("invalid PAYMENT_SUCCESS_RATE value %q, defaulting to 0.9", raw)
		} else {
			successRate = parsed
		}
	}

	return Config{
		Secret:             secret,
		DatabaseDSN:        dsn,
		HTTPPort:           port,
		UploadDir:          uploadDir,
		PaymentSuccessRate: successRate,
		Production:         os.Getenv("APP_ENV") == "production",
	}
}
