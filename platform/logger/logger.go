// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRun returns a logger tagged with a pipeline run ID.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("run_id", runID)),
	}
}

// SyncEvent logs one stage of a provider sync.
func (l *Logger) SyncEvent(medium, mode string, fetched, appended int) {
	l.Info("sync_event",
		slog.String("medium", medium),
		slog.String("mode", mode),
		slog.Int("fetched", fetched),
		slog.Int("appended", appended),
	)
}

// PipelineStage logs completion of one pipeline stage.
func (l *Logger) PipelineStage(stage string, count int) {
	l.Info("pipeline_stage",
		slog.String("stage", stage),
		slog.Int("count", count),
	)
}

// SheetError logs a spreadsheet I/O failure.
func (l *Logger) SheetError(operation, sheet string, err error) {
	l.Error("sheet_error",
		slog.String("operation", operation),
		slog.String("sheet", sheet),
		slog.String("error", err.Error()),
	)
}

// ProviderError logs a telephony provider API failure.
func (l *Logger) ProviderError(operation string, status int, err error) {
	l.Error("provider_error",
		slog.String("operation", operation),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
