package testsupport

import (
	"context"
	"testing"

	"cutroom/internal/config"
	"cutroom/internal/workspace"
)

// MustOpenStore opens a workspace.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *workspace.Store {
	t.Helper()

	store, err := workspace.Open(cfg)
	if err != nil {
		t.Fatalf("workspace.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddProject records a project card for tests using the provided store.
func AddProject(t testing.TB, store *workspace.Store, id, title string, steps ...string) *workspace.ProjectCard {
	t.Helper()

	if steps == nil {
		steps = []string{}
	}
	card, err := store.UpsertProject(context.Background(), workspace.ProjectCard{ID: id, Title: title, Status: "draft", StepsCompleted: steps})
	if err != nil {
		t.Fatalf("store.UpsertProject: %v", err)
	}
	return card
}
