package log

import (
	"context"
	"log/slog"
	"net/http"

	"bilancio/internal/core"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	FromContext(ctx).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogTransactionAdded logs a transaction that was stored successfully.
func (sl *StructuredLogger) LogTransactionAdded(ctx context.Context, tx core.Transaction) {
	fields := NewFields().
		WithTransaction(tx).
		WithOperation(OpCreate)

	sl.logger.InfoContext(ctx, "Transaction added", fields.ToSlice()...)
}

// LogLedgerCleared logs a reset together with where the backup went.
func (sl *StructuredLogger) LogLedgerCleared(ctx context.Context, removed int, backupPath string) {
	fields := NewFields().WithOperation(OpClear)
	fields[FieldCount] = removed
	if backupPath != "" {
		fields[FieldBackupPath] = backupPath
	}

	sl.logger.InfoContext(ctx, "Ledger cleared", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
