// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values for the API server and the CLI.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFile, when set, is a rotated log file written alongside stdout.
	LogFile string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// JWTSecret is the HS256 key bearer tokens are verified with. Required.
	JWTSecret string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// RabbitMQURL enables lifecycle event publishing when set.
	RabbitMQURL string

	// EventsExchange is the topic exchange events are published to.
	EventsExchange string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "transport.events"),
	}

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || maxBody <= 0 {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES must be a positive integer, got %q", os.Getenv("MAX_BODY_BYTES"))
	}
	cfg.MaxBodyBytes = maxBody

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// LoadDatabase is Load for commands that only talk to Postgres, such as
// migrations. Only DATABASE_URL is required.
func LoadDatabase() (Config, error) {
	cfg := Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("required environment variables not set: DATABASE_URL")
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
