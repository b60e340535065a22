package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DBLogger implements Logger on PostgreSQL.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger and ensures its table
// exists.
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	l := &DBLogger{db: db}
	if err := l.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_logs table: %w", err)
	}

	return l, nil
}

func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		entity_type VARCHAR(50) NOT NULL,
		action VARCHAR(100) NOT NULL,
		message TEXT NOT NULL,
		actor_user_id UUID,
		workspace_id UUID,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_user_id ON audit_logs(actor_user_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_workspace_id ON audit_logs(workspace_id);
	`

	_, err := l.db.Exec(query)
	return err
}

// Record inserts one action record.
func (l *DBLogger) Record(ctx context.Context, entity EntityType, action, message, actorUserID, workspaceID string) error {
	query := `
		INSERT INTO audit_logs (id, entity_type, action, message, actor_user_id, workspace_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`

	_, err := l.db.ExecContext(ctx, query,
		uuid.NewString(), entity, action, message, actorUserID, workspaceID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

// List returns the most recent entries for one workspace, newest first.
func (l *DBLogger) List(ctx context.Context, workspaceID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, entity_type, action, message, COALESCE(actor_user_id::text, ''), COALESCE(workspace_id::text, ''), created_at
		FROM audit_logs
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := l.db.QueryContext(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.Action, &e.Message, &e.ActorUserID, &e.WorkspaceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close releases the logger. The shared database handle is owned by the
// caller and left open.
func (l *DBLogger) Close() error { return nil }
