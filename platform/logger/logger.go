// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// CycleIDKey is the context key for the poll cycle ID
	CycleIDKey contextKey = "cycle_id"
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

// WithContext returns a logger with context values extracted.
// Supports request_id and cycle_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if cycleID, ok := ctx.Value(CycleIDKey).(string); ok && cycleID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("cycle_id", cycleID)),
		}
	}

	return newLogger
}

// WithCycleID stamps a poll cycle ID onto the context so all logging inside
// the cycle carries it.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, CycleIDKey, cycleID)
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
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

// CycleCompleted logs the outcome of a poll cycle.
func (l *Logger) CycleCompleted(importedMarketed, importedTGL, reconciled, corrected, errCount int, duration time.Duration) {
	l.Info("poll_cycle_completed",
		slog.Int("imported_marketed", importedMarketed),
		slog.Int("imported_tech_generated", importedTGL),
		slog.Int("reconciled", reconciled),
		slog.Int("corrected", corrected),
		slog.Int("errors", errCount),
		slog.Duration("duration", duration),
	)
}

// NotifyFailed logs a failed notification delivery. Delivery is best-effort,
// so this is a warning rather than an error.
func (l *Logger) NotifyFailed(category string, err error) {
	l.Warn("notification_delivery_failed",
		slog.String("category", category),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// UpstreamError logs source-system API errors
func (l *Logger) UpstreamError(operation string, err error) {
	l.Error("upstream_error",
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
