// Package config loads application configuration from environment
// variables, with sensible defaults for local development.
package config

import (
	"os"
)

// Config holds application configuration.
type Config struct {
	Port          string
	DBPath        string
	LogLevel      string
	AuditSchedule string
	CORSOrigins   []string
}

// NewConfig loads configuration from environment variables.
func NewConfig() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "portfolio.db"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		AuditSchedule: getEnv("AUDIT_SCHEDULE", "0 3 * * *"),
		CORSOrigins: []string{
			getEnv("CORS_ORIGIN", "http://localhost:5173"),
			"http://localhost:8080",
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
