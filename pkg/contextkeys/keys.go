// Package contextkeys centralizes the request context keys shared across
// packages, so no two packages collide on string keys.
package contextkeys

import "context"

// Key is the private type for all context keys in this module.
type Key string

const (
	// SessionKey holds the authenticated caller's access claims.
	SessionKey Key = "session"

	// RequestIDKey holds the per-request correlation id.
	RequestIDKey Key = "request_id"
)

// WithSession stores the caller's session value on the context.
func WithSession(ctx context.Context, session any) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// Session retrieves the stored session value, or nil.
func Session(ctx context.Context) any {
	return ctx.Value(SessionKey)
}

// WithRequestID stores the correlation id on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID retrieves the correlation id, or empty.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
