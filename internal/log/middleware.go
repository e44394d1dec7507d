package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or a logger over slog.Default
// when none was attached.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return bind(slog.Default(), "unknown")
}

// Middleware attaches logger to every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the fixed-shape records for requests, ledger
// changes and failures.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// emit prefers the request logger in ctx so records keep its request id.
func (sl *StructuredLogger) emit(ctx context.Context, component string, level slog.Level, msg string, fields LogFields) {
	logger := sl.logger
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		logger = l
	}
	logger.WithComponent(component).Log(ctx, level, msg, fields.ToSlice()...)
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)
	sl.emit(ctx, ComponentHTTP, slog.LevelDebug, "HTTP request started", fields)
}

// LogHTTPEnd logs a finished request: 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	sl.emit(ctx, ComponentHTTP, level, "HTTP request completed", fields)
}

// LogTransactionChanged logs a successful create, update or delete.
func (sl *StructuredLogger) LogTransactionChanged(ctx context.Context, op string, ownerID, txID int64, txType string, amountCents int64, account string) {
	fields := NewFields().
		WithUser(ownerID).
		WithTransaction(txID, txType, amountCents, account).
		WithOperation(op)
	sl.emit(ctx, ComponentTransactions, slog.LevelInfo, "Transaction "+op+"d", fields)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.emit(ctx, component, slog.LevelError, msg, fields.WithError(err).WithOperation(operation))
}
