package appstate

import (
	"sync"
	"testing"

	"cutroom/internal/api"
)

func projectWith(id string, steps ...string) *api.Project {
	return &api.Project{Metadata: api.Metadata{ID: id, Title: "Cabin Build", StepsCompleted: steps}}
}

func sceneWithLocation(id, prompt string) api.Scene {
	return api.Scene{
		Type:   api.SceneNarrated,
		Action: "work",
		Prompt: &api.Prompt{PromptText: "p", Locations: []api.PromptLocation{{ID: id, Image: "a.png", Prompt: prompt}}},
	}
}

func TestProjectReloadReplacesSnapshot(t *testing.T) {
	store := New()
	if err := store.Dispatch(ProjectLoaded{Project: projectWith("p1", "script")}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := store.Dispatch(StoryboardLoaded{Block: "intro", Document: &api.StoryboardDocument{}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	before := store.Snapshot()

	if err := store.Dispatch(ProjectLoaded{Project: projectWith("p1", "script", "breakdown")}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	after := store.Snapshot()
	if len(before.Steps()) != 1 || len(after.Steps()) != 2 {
		t.Fatalf("unexpected steps before=%v after=%v", before.Steps(), after.Steps())
	}
	if after.Storyboards["intro"] == nil {
		t.Fatal("same-project reload dropped loaded blocks")
	}

	if err := store.Dispatch(ProjectLoaded{Project: projectWith("p2")}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(store.Snapshot().Storyboards) != 0 {
		t.Fatal("switching projects kept old blocks")
	}
	if err := store.Dispatch(ProjectLoaded{}); err == nil {
		t.Fatal("expected error for nil project")
	}
}

func TestTryBusyIsExclusive(t *testing.T) {
	store := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.TryBusy("breakdown") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected one winner, got %d", winners)
	}
	if s := store.Snapshot(); !s.Busy || s.BusyStep != "breakdown" {
		t.Fatalf("unexpected busy state %+v", s)
	}
	if err := store.Dispatch(BusyChanged{Busy: false}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !store.TryBusy("elements") {
		t.Fatal("expected busy flag to be free again")
	}
}

func TestLogAppendAndClear(t *testing.T) {
	store := New()
	var seen []Action
	unsubscribe := store.Subscribe(func(_ State, a Action) { seen = append(seen, a) })
	_ = store.Dispatch(LogAppended{Event: api.ProgressEvent{Type: "info", Message: "one"}})
	_ = store.Dispatch(LogAppended{Scope: "chapter_1", Event: api.ProgressEvent{Type: "complete", Message: "two"}})
	s := store.Snapshot()
	if len(s.Log) != 2 || s.Log[1].Scope != "chapter_1" || s.Log[0].At.IsZero() {
		t.Fatalf("unexpected log %+v", s.Log)
	}
	_ = store.Dispatch(LogCleared{})
	if len(store.Snapshot().Log) != 0 {
		t.Fatal("log not cleared")
	}
	unsubscribe()
	_ = store.Dispatch(LogCleared{})
	if len(seen) != 3 {
		t.Fatalf("listener saw %d actions, want 3", len(seen))
	}
}

func TestPromptMergeCopiesOnWrite(t *testing.T) {
	store := New()
	doc := &api.StoryboardDocument{Storyboard: []api.Scene{{Type: api.SceneBridge, Action: "walk"}}}
	_ = store.Dispatch(StoryboardLoaded{Block: "chapter_1", Document: doc})
	before := store.Snapshot()

	if err := store.Dispatch(PromptMerged{Block: "chapter_1", Index: 0, PromptText: "new text", SFX: "wind"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	after := store.Snapshot().Storyboards["chapter_1"].Storyboard[0]
	if after.Prompt == nil || after.Prompt.PromptText != "new text" || after.Prompt.SFX != "wind" {
		t.Fatalf("prompt not merged: %+v", after.Prompt)
	}
	if before.Storyboards["chapter_1"].Storyboard[0].Prompt != nil || doc.Storyboard[0].Prompt != nil {
		t.Fatal("merge mutated an earlier snapshot")
	}
	if err := store.Dispatch(PromptMerged{Block: "chapter_1", Index: 4}); err == nil {
		t.Fatal("expected out of range error")
	}
	if err := store.Dispatch(PromptMerged{Block: "close", Index: 0}); err == nil {
		t.Fatal("expected not loaded error")
	}
}

func TestLocationPromptSetAcrossBlocks(t *testing.T) {
	store := New()
	_ = store.Dispatch(StoryboardLoaded{Block: "chapter_1", Document: &api.StoryboardDocument{Storyboard: []api.Scene{
		sceneWithLocation("loc_cabin", "old"), sceneWithLocation("loc_lake", "lake"),
	}}})
	_ = store.Dispatch(StoryboardLoaded{Block: "chapter_2", Document: &api.StoryboardDocument{Storyboard: []api.Scene{
		sceneWithLocation("loc_cabin", "old"),
	}}})

	if err := store.Dispatch(LocationPromptSet{LocationID: "loc_cabin", Prompt: "new", Image: "b.png"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	s := store.Snapshot()
	for _, folder := range []string{"chapter_1", "chapter_2"} {
		loc := s.Storyboards[folder].Storyboard[0].Prompt.Locations[0]
		if loc.Prompt != "new" || loc.Image != "b.png" {
			t.Fatalf("%s location not updated: %+v", folder, loc)
		}
	}
	if lake := s.Storyboards["chapter_1"].Storyboard[1].Prompt.Locations[0]; lake.Prompt != "lake" {
		t.Fatalf("unrelated location changed: %+v", lake)
	}
}

func TestElementAndAudioUpdates(t *testing.T) {
	store := New()
	if err := store.Dispatch(ElementUpdated{Element: api.Element{ElementID: "e1"}}); err == nil {
		t.Fatal("expected error without project")
	}
	project := projectWith("p1", "breakdown")
	project.Elements = []api.Element{{ElementID: "e1", Label: "Axe"}}
	_ = store.Dispatch(ProjectLoaded{Project: project})

	_ = store.Dispatch(ElementUpdated{Element: api.Element{ElementID: "e1", Label: "Big Axe"}})
	_ = store.Dispatch(ElementUpdated{Element: api.Element{ElementID: "e2", Label: "Saw"}})
	_ = store.Dispatch(AudioGenerated{SegmentID: "intro", Segment: api.AudioSegment{Filename: "intro.mp3", DurationSeconds: 12}})

	s := store.Snapshot()
	if len(s.Project.Elements) != 2 || s.Project.Elements[0].Label != "Big Axe" {
		t.Fatalf("unexpected elements %+v", s.Project.Elements)
	}
	if project.Elements[0].Label != "Axe" {
		t.Fatal("element update mutated the loaded project")
	}
	if s.Project.AudioManifest["intro"].Filename != "intro.mp3" {
		t.Fatalf("unexpected manifest %+v", s.Project.AudioManifest)
	}
}

func TestTryPendingIsPerBlock(t *testing.T) {
	store := New()
	if !store.TryPending("chapter_1") {
		t.Fatal("expected first claim to succeed")
	}
	if store.TryPending("chapter_1") {
		t.Fatal("expected second claim on the same block to fail")
	}
	if !store.TryPending("intro") {
		t.Fatal("expected other blocks to stay independent")
	}
	if err := store.Dispatch(StoryboardLoaded{Block: "chapter_1", Document: &api.StoryboardDocument{}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if store.Snapshot().Pending["chapter_1"] {
		t.Fatal("expected load to clear pending")
	}
}
