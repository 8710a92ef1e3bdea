package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cutroom/internal/api"
	"cutroom/internal/block"
)

// Draft is an unsaved storyboard working copy.
type Draft struct {
	ProjectID string
	Block     string
	Document  *api.StoryboardDocument
	UpdatedAt time.Time
}

// SaveDraft stores a working copy so local edits survive between commands.
// The project must already have a card.
func (s *Store) SaveDraft(ctx context.Context, projectID string, ref block.Ref, doc *api.StoryboardDocument) error {
	if doc == nil {
		return errors.New("save draft: document is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO storyboard_drafts (project_id, block_folder, document_json, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(project_id, block_folder) DO UPDATE SET
            document_json = excluded.document_json,
            updated_at = excluded.updated_at`,
		projectID, ref.Folder(), string(data), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// LoadDraft returns the working copy for a block or ErrNoDraft.
func (s *Store) LoadDraft(ctx context.Context, projectID string, ref block.Ref) (*Draft, error) {
	var (
		raw     string
		updated sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT document_json, updated_at FROM storyboard_drafts WHERE project_id = ? AND block_folder = ?",
		projectID, ref.Folder(),
	).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoDraft, projectID, ref.Folder())
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var doc api.StoryboardDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &Draft{ProjectID: projectID, Block: ref.Folder(), Document: &doc, UpdatedAt: parseTime(updated)}, nil
}

// DeleteDraft discards a working copy. Deleting a missing draft is not an error.
func (s *Store) DeleteDraft(ctx context.Context, projectID string, ref block.Ref) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM storyboard_drafts WHERE project_id = ? AND block_folder = ?", projectID, ref.Folder()); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// DraftBlocks lists the block folders that have a working copy.
func (s *Store) DraftBlocks(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT block_folder FROM storyboard_drafts WHERE project_id = ? ORDER BY block_folder", projectID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()
	var folders []string
	for rows.Next() {
		var folder string
		if err := rows.Scan(&folder); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}
