// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the sync service.
type Config struct {
	Env         string // "dev" or "prod"
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string
	DevAuth     bool // allow X-Debug-* auth headers
	LogLevel    string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present but never required.
func Load() *Config {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("env", "dev")
	viper.SetDefault("http_addr", ":8082")
	viper.SetDefault("log_level", "info")

	cfg := &Config{
		Env:         viper.GetString("env"),
		HTTPAddr:    viper.GetString("http_addr"),
		DatabaseURL: viper.GetString("database_url"),
		JWTSecret:   viper.GetString("jwt_hs256_secret"),
		LogLevel:    viper.GetString("log_level"),
		DevAuth:     viper.GetBool("dev_auth"),
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	// Debug auth headers are never honored outside dev.
	if cfg.Env != "dev" {
		cfg.DevAuth = false
	}

	return cfg
}
