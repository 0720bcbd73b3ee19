package servicecontext

import (
	"context"

	"github.com/iqautojobs/jobboard-bff/internal/session"
)

type contextKey string

const (
	requestIDKey contextKey = "request.id"
	summaryKey   contextKey = "session.summary"
)

// WithRequestID attaches the correlation ID forwarded to the backend.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the correlation ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// WithSummary attaches the verified session mirror for the current request.
func WithSummary(ctx context.Context, s session.Summary) context.Context {
	return context.WithValue(ctx, summaryKey, s)
}

// GetSummary retrieves the session mirror from context
func GetSummary(ctx context.Context) (session.Summary, bool) {
	s, ok := ctx.Value(summaryKey).(session.Summary)
	return s, ok
}
