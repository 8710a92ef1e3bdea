package workspace_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cutroom/internal/api"
	"cutroom/internal/backend"
	"cutroom/internal/block"
	"cutroom/internal/testsupport"
	"cutroom/internal/workspace"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	versions, err := store.SchemaVersions(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersions: %v", err)
	}
	if strings.Join(versions, ",") != "001_init,002_progress_log" {
		t.Fatalf("unexpected versions %v", versions)
	}

	// Reopening must not reapply migrations.
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)
	if _, err := reopened.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects after reopen: %v", err)
	}
}

func TestProjectCards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	card := workspace.CardFromMetadata(api.Metadata{ID: "p1", Title: "Cabin Build"})
	if card.Status != api.StatusDraft || card.StepsCompleted == nil || len(card.StepsCompleted) != 0 {
		t.Fatalf("unexpected card %+v", card)
	}
	saved, err := store.UpsertProject(ctx, card)
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if saved.Title != "Cabin Build" || len(saved.StepsCompleted) != 0 || saved.AddedAt.IsZero() {
		t.Fatalf("unexpected saved card %+v", saved)
	}

	testsupport.AddProject(t, store, "p2", "Tiny House")
	card.StepsCompleted = []string{"script", "breakdown"}
	card.Status = api.StatusInProgress
	updated, err := store.UpsertProject(ctx, card)
	if err != nil {
		t.Fatalf("UpsertProject refresh: %v", err)
	}
	if !updated.AddedAt.Equal(saved.AddedAt) || len(updated.StepsCompleted) != 2 {
		t.Fatalf("refresh changed added_at or lost steps: %+v", updated)
	}

	cards, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(cards) != 2 || cards[0].ID != "p1" || cards[1].ID != "p2" {
		t.Fatalf("unexpected order %+v", cards)
	}

	if err := store.TouchProject(ctx, "p2"); err != nil {
		t.Fatalf("TouchProject: %v", err)
	}
	if err := store.TouchProject(ctx, "missing"); !errors.Is(err, workspace.ErrUnknownProject) {
		t.Fatalf("expected unknown project, got %v", err)
	}
	if _, err := store.GetProject(ctx, "missing"); !errors.Is(err, workspace.ErrUnknownProject) {
		t.Fatalf("expected unknown project, got %v", err)
	}
	if _, err := store.UpsertProject(ctx, workspace.ProjectCard{Title: "no id"}); err == nil {
		t.Fatal("expected error for blank id")
	}
}

func TestDraftsRoundTripAndCascade(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.AddProject(t, store, "p1", "Cabin Build")

	if _, err := store.LoadDraft(ctx, "p1", block.Intro()); !errors.Is(err, workspace.ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft, got %v", err)
	}

	doc := &api.StoryboardDocument{
		Storyboard:  []api.Scene{{Number: 1, Type: api.SceneNarrated, Action: "Dig"}},
		TotalScenes: 1,
		Extra:       api.Extras{"chapter_title": []byte(`"Groundwork"`)},
	}
	if err := store.SaveDraft(ctx, "p1", block.Chapter(1), doc); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	draft, err := store.LoadDraft(ctx, "p1", block.Chapter(1))
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if draft.Block != "chapter_2" || len(draft.Document.Storyboard) != 1 || draft.Document.Storyboard[0].Action != "Dig" {
		t.Fatalf("unexpected draft %+v", draft)
	}
	if string(draft.Document.Extra["chapter_title"]) != `"Groundwork"` {
		t.Fatalf("draft lost extras: %v", draft.Document.Extra)
	}

	folders, err := store.DraftBlocks(ctx, "p1")
	if err != nil || len(folders) != 1 || folders[0] != "chapter_2" {
		t.Fatalf("DraftBlocks = %v %v", folders, err)
	}

	if err := store.SaveDraft(ctx, "unknown", block.Intro(), doc); err == nil {
		t.Fatal("expected foreign key failure for unknown project")
	}

	if err := store.RemoveProject(ctx, "p1"); err != nil {
		t.Fatalf("RemoveProject: %v", err)
	}
	if _, err := store.LoadDraft(ctx, "p1", block.Chapter(1)); !errors.Is(err, workspace.ErrNoDraft) {
		t.Fatalf("draft survived project removal: %v", err)
	}
}

func TestProgressLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	events := []api.ProgressEvent{
		{Type: "info", Message: "one"},
		{Type: "info", Message: "two"},
		{Type: "complete", Message: "three"},
	}
	for _, evt := range events {
		if err := store.AppendProgress(ctx, "p1", "", evt); err != nil {
			t.Fatalf("AppendProgress: %v", err)
		}
	}
	if err := store.AppendProgress(ctx, "p1", "chapter_1", api.ProgressEvent{Type: "info", Message: "grid"}); err != nil {
		t.Fatalf("AppendProgress: %v", err)
	}

	all, err := store.ProgressLog(ctx, "p1", 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("ProgressLog = %d %v", len(all), err)
	}
	tail, err := store.ProgressLog(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("ProgressLog tail: %v", err)
	}
	if len(tail) != 2 || tail[0].Event.Message != "three" || tail[1].Scope != "chapter_1" {
		t.Fatalf("unexpected tail %+v", tail)
	}

	if err := store.ClearProgress(ctx, "p1", "chapter_1"); err != nil {
		t.Fatalf("ClearProgress scope: %v", err)
	}
	remaining, _ := store.ProgressLog(ctx, "p1", 0)
	if len(remaining) != 3 {
		t.Fatalf("scoped clear removed %d entries", 4-len(remaining))
	}
	if err := store.ClearProgress(ctx, "p1", ""); err != nil {
		t.Fatalf("ClearProgress: %v", err)
	}
	if remaining, _ := store.ProgressLog(ctx, "p1", 0); len(remaining) != 0 {
		t.Fatalf("expected empty log, got %d", len(remaining))
	}
}

func TestLockProjectIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	lock, err := store.LockProject("p1")
	if err != nil {
		t.Fatalf("LockProject: %v", err)
	}
	if _, err := store.LockProject("p1"); !errors.Is(err, backend.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	other, err := store.LockProject("p2")
	if err != nil {
		t.Fatalf("LockProject other: %v", err)
	}
	defer other.Release()

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := store.LockProject("p1")
	if err != nil {
		t.Fatalf("LockProject after release: %v", err)
	}
	_ = again.Release()

	if _, err := store.LockProject("  "); !errors.Is(err, backend.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
