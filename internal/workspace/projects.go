package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cutroom/internal/api"
)

// ProjectCard is the locally remembered summary of a backend project.
type ProjectCard struct {
	ID             string
	Title          string
	Status         string
	StepsCompleted []string
	CreatedAt      string
	AddedAt        time.Time
	UpdatedAt      time.Time
	LastOpenedAt   time.Time
}

// CardFromMetadata converts backend metadata into a card.
func CardFromMetadata(meta api.Metadata) ProjectCard {
	steps := meta.StepsCompleted
	if steps == nil {
		steps = []string{}
	}
	status := meta.Status
	if status == "" {
		status = api.StatusDraft
	}
	return ProjectCard{
		ID:             meta.ID,
		Title:          meta.Title,
		Status:         status,
		StepsCompleted: append([]string{}, steps...),
		CreatedAt:      meta.CreatedAt,
	}
}

const cardColumns = "id, title, status, steps_json, created_at, added_at, updated_at, last_opened_at"

// UpsertProject records or refreshes a project card. The original added_at
// is kept on refresh.
func (s *Store) UpsertProject(ctx context.Context, card ProjectCard) (*ProjectCard, error) {
	card.ID = strings.TrimSpace(card.ID)
	if card.ID == "" {
		return nil, errors.New("upsert project: id is required")
	}
	steps := card.StepsCompleted
	if steps == nil {
		steps = []string{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("marshal steps: %w", err)
	}
	now := s.timestamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, title, status, steps_json, created_at, added_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            status = excluded.status,
            steps_json = excluded.steps_json,
            created_at = COALESCE(excluded.created_at, projects.created_at),
            updated_at = excluded.updated_at`,
		card.ID,
		card.Title,
		card.Status,
		string(stepsJSON),
		nullableString(card.CreatedAt),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert project: %w", err)
	}
	return s.GetProject(ctx, card.ID)
}

// GetProject returns one card or ErrUnknownProject.
func (s *Store) GetProject(ctx context.Context, id string) (*ProjectCard, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+cardColumns+" FROM projects WHERE id = ?", strings.TrimSpace(id))
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProject, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return card, nil
}

// ListProjects returns cards in the order they were added.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectCard, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+cardColumns+" FROM projects ORDER BY added_at, id")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var cards []ProjectCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// TouchProject records that a project was opened.
func (s *Store) TouchProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE projects SET last_opened_at = ? WHERE id = ?", s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownProject, id)
	}
	return nil
}

// RemoveProject forgets a project together with its drafts and progress log.
func (s *Store) RemoveProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM progress_log WHERE project_id = ?", id); err != nil {
		return fmt.Errorf("remove progress log: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("remove project: %w", err)
	}
	return tx.Commit()
}

func scanCard(scanner interface{ Scan(dest ...any) error }) (*ProjectCard, error) {
	var (
		card       ProjectCard
		stepsJSON  string
		createdAt  sql.NullString
		addedAt    sql.NullString
		updatedAt  sql.NullString
		lastOpened sql.NullString
	)
	if err := scanner.Scan(&card.ID, &card.Title, &card.Status, &stepsJSON, &createdAt, &addedAt, &updatedAt, &lastOpened); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stepsJSON), &card.StepsCompleted); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	if card.StepsCompleted == nil {
		card.StepsCompleted = []string{}
	}
	card.CreatedAt = createdAt.String
	card.AddedAt = parseTime(addedAt)
	card.UpdatedAt = parseTime(updatedAt)
	card.LastOpenedAt = parseTime(lastOpened)
	return &card, nil
}
