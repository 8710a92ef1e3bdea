package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cutroom/internal/api"
)

// LogEntry is one persisted progress line.
type LogEntry struct {
	ID        int64
	ProjectID string
	Scope     string
	Event     api.ProgressEvent
	CreatedAt time.Time
}

// AppendProgress persists a progress event. Scope is the block folder for grid
// streams and empty for project-level generation.
func (s *Store) AppendProgress(ctx context.Context, projectID, scope string, evt api.ProgressEvent) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO progress_log (project_id, scope, event_type, message, created_at) VALUES (?, ?, ?, ?, ?)",
		projectID, scope, evt.Type, evt.Message, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append progress: %w", err)
	}
	return nil
}

// ProgressLog returns the most recent limit entries in arrival order. A
// non-positive limit returns everything.
func (s *Store) ProgressLog(ctx context.Context, projectID string, limit int) ([]LogEntry, error) {
	query := `SELECT id, project_id, scope, event_type, message, created_at FROM (
        SELECT * FROM progress_log WHERE project_id = ? ORDER BY id DESC LIMIT ?
    ) ORDER BY id`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query progress log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			entry   LogEntry
			created sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.Scope, &entry.Event.Type, &entry.Event.Message, &created); err != nil {
			return nil, fmt.Errorf("scan progress entry: %w", err)
		}
		entry.CreatedAt = parseTime(created)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ClearProgress removes a project's log lines, optionally for one scope only.
// It mirrors clearing the log panel before a new generation starts.
func (s *Store) ClearProgress(ctx context.Context, projectID, scope string) error {
	var err error
	if scope == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM progress_log WHERE project_id = ?", projectID)
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM progress_log WHERE project_id = ? AND scope = ?", projectID, scope)
	}
	if err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
