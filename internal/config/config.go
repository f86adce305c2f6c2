package config

import (
	"os"
	"time"
)

// Config holds all runtime settings for the client application.
type Config struct {
	// Addr is the listen address for the local UI server.
	Addr string
	// APIBaseURL is the base URL of the remote todo API.
	APIBaseURL string
	// APITimeout bounds each remote call.
	APITimeout time.Duration
	// StateDBPath locates the local SQLite state database.
	StateDBPath string
	// Env is "development" or "production".
	Env string
	// LogLevel is a zerolog level name ("debug", "info", ...).
	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (loaded by the caller) > default.
func Load() Config {
	return Config{
		Addr:        getEnv("APP_ADDR", "127.0.0.1:8080"),
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:5000"),
		APITimeout:  getEnvDuration("API_TIMEOUT", 15*time.Second),
		StateDBPath: getEnv("STATE_DB_PATH", "go-todos.db"),
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// Dev reports whether the app runs in development mode.
func (c Config) Dev() bool { return c.Env != "production" }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
