// Package slogx sets up the gateway's structured logging: a process-wide
// slog.Logger carrying service identity fields, plus request-scoped loggers
// threaded through context by the HTTP middleware.
package slogx

import (
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler and the identity fields stamped on every record.
type Config struct {
	Service string // logical service name, e.g. "gateway"
	Version string // build version
	Env     string // e.g. "dev", "prod"
	Level   string // e.g. "debug", "info", "warn", "error"
	Format  string // "json" (default) or "text"
}

// New builds the logger, installs it as the slog default and returns it.
// Source locations are attached only in dev, where the noise is worth it.
func New(cfg Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     parseLevel(cfg.Level),
	}

	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)

	slog.SetDefault(logger)
	return logger
}

// parseLevel maps a level name to slog.Level; unknown names mean info.
func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
