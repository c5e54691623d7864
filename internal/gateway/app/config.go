package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	IdentityURL string // Required: base URL of the identity provider
	BackendURL  string // Required: base URL of the platform backend

	DatabaseFile     string        // Optional: path to SQLite cache database file (default: ./gateway.db)
	SessionCacheFile string        // Optional: path to the encrypted session cache (default: ./session.cache)
	CacheKeyFile     string        // Optional: path to the session cache key file
	Env              string        // Environment (dev, staging, prod) (default: dev)
	LogLevel         string        // Log level (debug, info, warn, error) (default: info)
	LogFormat        string        // Log format (json, text) (default: json)
	Port             int           // HTTP server port (default: 8080)
	ShutdownGrace    time.Duration // Graceful shutdown timeout (default: 10s)

	NotificationInterval time.Duration // Notification count poll cadence (default: 30s)
	MessageInterval      time.Duration // Message list poll cadence (default: 5s)
	StatusInterval       time.Duration // Seen-status poll cadence (default: 10s)

	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	ConversationTTL      time.Duration // Idle conversation retention (default: 7 days)
}

func LoadConfig() Config {
	return Config{
		IdentityURL:      os.Getenv("STRIDE_IDENTITY_URL"),
		BackendURL:       os.Getenv("STRIDE_BACKEND_URL"),
		DatabaseFile:     getEnvOrDefault("STRIDE_DATABASE_FILE", "gateway.db"),
		SessionCacheFile: getEnvOrDefault("STRIDE_SESSION_CACHE_FILE", "session.cache"),
		CacheKeyFile:     os.Getenv("STRIDE_CACHE_KEY_FILE"), // Optional

		Env:           getEnvOrDefault("ENV", "dev"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "json"),
		Port:          getEnvIntOrDefault("PORT", 8080),
		ShutdownGrace: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		NotificationInterval: getEnvDurationOrDefault("STRIDE_NOTIFICATION_INTERVAL", 30*time.Second),
		MessageInterval:      getEnvDurationOrDefault("STRIDE_MESSAGE_INTERVAL", 5*time.Second),
		StatusInterval:       getEnvDurationOrDefault("STRIDE_STATUS_INTERVAL", 10*time.Second),

		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		ConversationTTL:      getEnvDurationOrDefault("STRIDE_CONVERSATION_TTL", 7*24*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Allow plain integers as seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
