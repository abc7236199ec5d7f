package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RunIDKey is the context key for the reconciliation run ID
	RunIDKey contextKey = "run_id"
	// PlatformKey is the context key for the platform being reconciled
	PlatformKey contextKey = "platform"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// ForRun tags the logger with a run ID and platform and stores both in the context
func ForRun(ctx context.Context, logger *zap.Logger, runID, platform string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RunIDKey, runID)
	ctx = context.WithValue(ctx, PlatformKey, platform)
	enriched := logger.With(
		zap.String("run_id", runID),
		zap.String("platform", platform),
	)
	return WithContext(ctx, enriched), enriched
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// GetPlatform retrieves the platform from context
func GetPlatform(ctx context.Context) string {
	if platform, ok := ctx.Value(PlatformKey).(string); ok {
		return platform
	}
	return ""
}

// Debug logs a debug message using the logger from context
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Debug(msg, fields...)
}

// Info logs an info message using the logger from context
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Info(msg, fields...)
}

// Warn logs a warning message using the logger from context
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Warn(msg, fields...)
}

// Error logs an error message using the logger from context
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Error(msg, fields...)
}
