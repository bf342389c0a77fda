package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFile is loaded before the environment is read; variables already set
// in the process environment win over the file.
var envFile = ".env"

// parseEnv overlays Config with TRIALS_ADDR, DATABASE_DSN, JWT_SECRET and
// LOG_LEVEL. A missing .env file is not an error.
func parseEnv(config *Config) {
	_ = godotenv.Load(envFile)

	if v, ok := os.LookupEnv("TRIALS_ADDR"); ok && v != "" {
		config.EndpointAddr = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok && v != "" {
		config.DatabaseDSN = v
	}
	// an explicitly empty JWT_SECRET disables auth
	if v, ok := os.LookupEnv("JWT_SECRET"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		config.LogLevel = v
	}
}
