package logging

import (
	"context"
	"log"
)

type ctxKey struct{}

// RequestIDKey is the context key under which the request-id middleware
// stores the current request id.
var RequestIDKey ctxKey

// WithRequestID returns a context carrying the given request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Logger provides structured logging scoped to one request.
type Logger struct {
	requestID string
}

// New creates a logger bound to the request id in ctx, if any.
func New(ctx context.Context) *Logger {
	requestID := "unknown"
	if rid, ok := ctx.Value(RequestIDKey).(string); ok && rid != "" {
		requestID = rid
	}
	return &Logger{requestID: requestID}
}

// Error logs an error with context.
func (l *Logger) Error(operation string, err error) {
	log.Printf("[error] request_id=%s operation=%s error=%v", l.requestID, operation, err)
}

// Errorf logs a formatted error with context.
func (l *Logger) Errorf(operation string, format string, args ...any) {
	log.Printf("[error] request_id=%s operation=%s "+format, append([]any{l.requestID, operation}, args...)...)
}

// Info logs an info message with context.
func (l *Logger) Info(operation string, message string) {
	log.Printf("[info] request_id=%s operation=%s message=%s", l.requestID, operation, message)
}

// Infof logs a formatted info message with context.
func (l *Logger) Infof(operation string, format string, args ...any) {
	log.Printf("[info] request_id=%s operation=%s "+format, append([]any{l.requestID, operation}, args...)...)
}

// Warnf logs a formatted warning with context.
func (l *Logger) Warnf(operation string, format string, args ...any) {
	log.Printf("[warn] request_id=%s operation=%s "+format, append([]any{l.requestID, operation}, args...)...)
}
