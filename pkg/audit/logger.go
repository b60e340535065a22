package audit

import "context"

// Logger appends structured action records after successful mutations.
//
// Audit writes are fire-and-forget: a failure to record must never roll back
// the mutation or the authorization decision that allowed it. Callers log
// returned errors and move on.
type Logger interface {
	// Record appends one action record.
	Record(ctx context.Context, entity EntityType, action, message, actorUserID, workspaceID string) error

	// Close flushes and releases the logger.
	Close() error
}

// NopLogger discards every record; used when auditing is disabled and in
// tests.
type NopLogger struct{}

// Record discards the entry.
func (NopLogger) Record(context.Context, EntityType, string, string, string, string) error {
	return nil
}

// Close is a no-op.
func (NopLogger) Close() error { return nil }
