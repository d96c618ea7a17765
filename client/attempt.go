package client

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AttemptContext describes one attempt of a logical invocation. A fresh
// value is built for every attempt and handed to each interceptor;
// interceptors must not retain it past their call.
//
// Elapsed is only populated on the response side of an attempt.
type AttemptContext struct {
	Path          string
	Method        string
	Attempt       int
	Elapsed       time.Duration
	CorrelationID string
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

// correlationIDKey is the context key for correlation ID values
const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context. All attempts of
// invocations made with the returned context share the ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns a correlation ID from context if present
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureCorrelationID returns an existing correlation ID from context or
// generates a new one
func EnsureCorrelationID(ctx context.Context) string {
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return id
	}
	return uuid.New().String()
}
