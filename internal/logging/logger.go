// Package logging configures the process-wide zerolog logger.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// New builds a zerolog logger from cfg. Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// SetGlobal installs logger as the package-level zerolog logger and as the
// fallback returned by log.Ctx for contexts without one.
func SetGlobal(logger zerolog.Logger) {
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
}

// WithRequestID returns ctx carrying a child of the global logger tagged with
// the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	logger := log.Logger.With().Str("request_id", requestID).Logger()
	return logger.WithContext(ctx)
}

// WithUser adds the authenticated user id to the logger already on ctx.
func WithUser(ctx context.Context, userID int64) context.Context {
	logger := log.Ctx(ctx).With().Int64("user_id", userID).Logger()
	return logger.WithContext(ctx)
}

// HTTPRequest logs the completion of an HTTP request at a level matching the
// status code.
func HTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	logger := log.Ctx(ctx)
	event := logger.Info()
	switch {
	case statusCode >= 500:
		event = logger.Error()
	case statusCode >= 400:
		event = logger.Warn()
	}

	event.
		Str("method", method).
		Str("path", path).
		Int("status_code", statusCode).
		Dur("duration_ms", duration).
		Msg("HTTP request completed")
}
