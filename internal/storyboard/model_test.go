package storyboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cutroom/internal/api"
	"cutroom/internal/backend"
	"cutroom/internal/block"
)

type fakeStore struct {
	doc    *api.StoryboardDocument
	err    error
	saved  []byte
	refs   []block.Ref
	saveFn func(doc *api.StoryboardDocument) error
}

func (f *fakeStore) GetStoryboard(_ context.Context, _ string, ref block.Ref) (*api.StoryboardDocument, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *fakeStore) SaveStoryboard(_ context.Context, _ string, ref block.Ref, doc *api.StoryboardDocument) (*backend.SaveResponse, error) {
	f.refs = append(f.refs, ref)
	if f.saveFn != nil {
		if err := f.saveFn(doc); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	f.saved = data
	return &backend.SaveResponse{Status: "updated", Scenes: len(doc.Storyboard)}, nil
}

const chapterJSON = `{
  "storyboard": [
    {"scene_num": 1, "type": "narrated", "action": "Clearing the site", "location_id": "loc_forest",
     "elements": ["char_builder", "obj_axe"], "tools": ["axe"], "time_of_day": "morning", "weather": "clear",
     "camera_move": "dolly", "prompt": {"prompt_text": "@Builder swings", "done": false, "seed": 7}},
    {"scene_num": 2, "type": "bridge", "action": "Logs stacked", "location_id": "loc_forest"},
    {"scene_num": 3, "type": "narrated", "action": "Foundation poured", "location_id": "loc_site"}
  ],
  "validation": {"score": 72, "summary": "ok", "errors": [{"message": "Scene 2: too short", "severity": "error"}],
                 "warnings": ["Pacing is uneven", {"message": "Scene 3 lacks tools"}]},
  "total_scenes": 3,
  "chapter_title": "Groundwork"
}`

func loadModel(t *testing.T) *Model {
	t.Helper()
	var doc api.StoryboardDocument
	if err := json.Unmarshal([]byte(chapterJSON), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return New("p1", block.Chapter(0), &doc, DefaultSettings())
}

func assertDense(t *testing.T, m *Model) {
	t.Helper()
	for i, scene := range m.Scenes() {
		if scene.Number != i+1 {
			t.Fatalf("scene %d numbered %d", i, scene.Number)
		}
	}
	if m.Document().TotalScenes != m.Len() {
		t.Fatalf("total_scenes = %d, want %d", m.Document().TotalScenes, m.Len())
	}
}

func TestLoadNotGenerated(t *testing.T) {
	store := &fakeStore{err: backend.Wrap(backend.ErrNotGenerated, "get storyboard", "chapter_2", nil)}
	m, err := Load(context.Background(), store, "p1", block.Chapter(1), DefaultSettings())
	if m != nil || !errors.Is(err, backend.ErrNotGenerated) {
		t.Fatalf("expected not generated, got %v %v", m, err)
	}
	if store.refs[0].Folder() != "chapter_2" {
		t.Fatalf("unexpected ref %v", store.refs[0])
	}
}

func TestInsertBridgeInheritsAndRenumbers(t *testing.T) {
	m := loadModel(t)
	at, err := m.InsertBridge(0)
	if err != nil {
		t.Fatalf("InsertBridge: %v", err)
	}
	if at != 1 || m.Len() != 4 {
		t.Fatalf("inserted at %d, len %d", at, m.Len())
	}
	bridge := m.Scenes()[1]
	if bridge.Type != api.SceneBridge || bridge.Action != "(describe the bridge action here)" {
		t.Fatalf("unexpected bridge %+v", bridge)
	}
	if api.Deref(bridge.BridgeReason) != "(why is this bridge needed?)" {
		t.Fatalf("unexpected reason %q", api.Deref(bridge.BridgeReason))
	}
	if bridge.LocationID != "loc_forest" || bridge.TimeOfDay != "morning" || bridge.Weather != "clear" {
		t.Fatalf("bridge did not inherit context: %+v", bridge)
	}
	if len(bridge.Tools) != 0 || len(bridge.Elements) != 2 {
		t.Fatalf("unexpected tools/elements %v %v", bridge.Tools, bridge.Elements)
	}
	m.Scenes()[1].Elements[0] = "changed"
	if m.Scenes()[0].Elements[0] != "char_builder" {
		t.Fatal("bridge elements alias the previous scene")
	}
	if bridge.NumberKey() != "scene_num" {
		t.Fatalf("bridge number key = %q", bridge.NumberKey())
	}
	assertDense(t, m)
	if m.Document().TotalBridges != 2 || m.Document().TotalNarrated != 2 {
		t.Fatalf("unexpected totals %+v", m.Document())
	}
	if !m.Dirty() {
		t.Fatal("expected dirty model")
	}
}

func TestInsertBridgeOutOfRange(t *testing.T) {
	m := loadModel(t)
	for _, idx := range []int{-1, 3} {
		if _, err := m.InsertBridge(idx); !errors.Is(err, backend.ErrValidation) {
			t.Fatalf("InsertBridge(%d) = %v", idx, err)
		}
	}
}

func TestDeleteSceneConfirmGate(t *testing.T) {
	m := loadModel(t)
	var prompt string
	err := m.DeleteScene(1, func(p string) bool { prompt = p; return false })
	if !errors.Is(err, backend.ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("declined delete removed a scene")
	}
	if !strings.HasPrefix(prompt, "Delete scene 2?") || !strings.Contains(prompt, "Logs stacked") {
		t.Fatalf("unexpected prompt %q", prompt)
	}

	if err := m.DeleteScene(0, func(string) bool { return true }); err != nil {
		t.Fatalf("DeleteScene: %v", err)
	}
	if m.Len() != 2 || m.Scenes()[0].Action != "Logs stacked" {
		t.Fatalf("unexpected scenes %+v", m.Scenes())
	}
	assertDense(t, m)
}

func TestDeleteOnlyScene(t *testing.T) {
	doc := &api.StoryboardDocument{Storyboard: []api.Scene{{Number: 1, Type: api.SceneNarrated, Action: "only"}}, TotalScenes: 1}
	m := New("p1", block.Intro(), doc, DefaultSettings())
	if err := m.DeleteScene(0, nil); err != nil {
		t.Fatalf("DeleteScene: %v", err)
	}
	if m.Len() != 0 || m.Document().TotalScenes != 0 {
		t.Fatalf("expected empty storyboard, got %d/%d", m.Len(), m.Document().TotalScenes)
	}
	data, err := json.Marshal(m.Document())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"storyboard":[]`) {
		t.Fatalf("expected empty array, got %s", data)
	}
}

func TestStructuralEditsKeepNumbersDense(t *testing.T) {
	m := loadModel(t)
	ops := []func() error{
		func() error { _, err := m.InsertBridge(2); return err },
		func() error { return m.DeleteScene(0, nil) },
		func() error { _, err := m.InsertBridge(0); return err },
		func() error { _, err := m.InsertBridge(3); return err },
		func() error { return m.DeleteScene(2, nil) },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		assertDense(t, m)
	}
}

func TestEditField(t *testing.T) {
	m := loadModel(t)
	tests := []struct {
		field string
		value string
		check func(api.Scene) bool
	}{
		{"action", "New action", func(s api.Scene) bool { return s.Action == "New action" }},
		{"elements", " a, ,b ,c", func(s api.Scene) bool { return strings.Join(s.Elements, "|") == "a|b|c" }},
		{"tools", "", func(s api.Scene) bool { return len(s.Tools) == 0 }},
		{"notes", "check lighting", func(s api.Scene) bool { return api.Deref(s.Notes) == "check lighting" }},
		{"notes", "  ", func(s api.Scene) bool { return s.Notes == nil }},
		{"duration", "6s", func(s api.Scene) bool { return s.Duration == "6s" }},
		{"type", "Silent", func(s api.Scene) bool { return s.Type == api.SceneSilent }},
	}
	for _, tt := range tests {
		if err := m.EditField(0, tt.field, tt.value); err != nil {
			t.Fatalf("EditField(%s): %v", tt.field, err)
		}
		if !tt.check(m.Scenes()[0]) {
			t.Fatalf("EditField(%s, %q) not applied: %+v", tt.field, tt.value, m.Scenes()[0])
		}
	}
	if m.Document().TotalNarrated != 1 {
		t.Fatalf("type change not reflected in totals: %d", m.Document().TotalNarrated)
	}
	if err := m.EditField(0, "type", "montage"); !errors.Is(err, backend.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := m.EditField(0, "scene_num", "9"); !errors.Is(err, backend.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEditFieldTrimsFieldName(t *testing.T) {
	m := loadModel(t)
	if err := m.EditField(0, " type ", "bridge"); err != nil {
		t.Fatalf("EditField: %v", err)
	}
	if m.Scenes()[0].Type != api.SceneBridge {
		t.Fatalf("type not applied: %q", m.Scenes()[0].Type)
	}
	bridges, narrated := 0, 0
	for _, scene := range m.Scenes() {
		switch scene.Type {
		case api.SceneBridge:
			bridges++
		case api.SceneNarrated:
			narrated++
		}
	}
	doc := m.Document()
	if doc.TotalBridges != bridges || doc.TotalNarrated != narrated {
		t.Fatalf("totals = %d bridges %d narrated, want %d and %d", doc.TotalBridges, doc.TotalNarrated, bridges, narrated)
	}
}

func TestTogglePromptDoneTwiceRestores(t *testing.T) {
	m := loadModel(t)
	first, err := m.TogglePromptDone(0)
	if err != nil || !first {
		t.Fatalf("first toggle = %v %v", first, err)
	}
	second, err := m.TogglePromptDone(0)
	if err != nil || second {
		t.Fatalf("second toggle = %v %v", second, err)
	}
	if _, err := m.TogglePromptDone(1); !errors.Is(err, backend.ErrValidation) {
		t.Fatalf("expected validation error for scene without prompt, got %v", err)
	}
}

func TestSavePushesFullDocument(t *testing.T) {
	m := loadModel(t)
	if _, err := m.TogglePromptDone(0); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := m.InsertBridge(2); err != nil {
		t.Fatalf("insert: %v", err)
	}
	store := &fakeStore{}
	resp, err := m.Save(context.Background(), store)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if resp.Scenes != 4 || m.Dirty() {
		t.Fatalf("unexpected save result %+v dirty=%v", resp, m.Dirty())
	}

	var saved map[string]any
	if err := json.Unmarshal(store.saved, &saved); err != nil {
		t.Fatalf("decode saved: %v", err)
	}
	if saved["chapter_title"] != "Groundwork" {
		t.Fatalf("document extras dropped: %s", store.saved)
	}
	if saved["estimated_video_duration_seconds"].(float64) != 60 || saved["total_scenes"].(float64) != 4 {
		t.Fatalf("unexpected totals in %s", store.saved)
	}
	scenes := saved["storyboard"].([]any)
	first := scenes[0].(map[string]any)
	if first["camera_move"] != "dolly" || first["scene_num"].(float64) != 1 {
		t.Fatalf("scene extras dropped: %v", first)
	}
	prompt := first["prompt"].(map[string]any)
	if prompt["done"] != true || prompt["seed"].(float64) != 7 {
		t.Fatalf("prompt not saved as toggled: %v", prompt)
	}
	last := scenes[3].(map[string]any)
	if last["scene_num"].(float64) != 4 || last["type"] != "bridge" {
		t.Fatalf("unexpected inserted scene %v", last)
	}
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	m := loadModel(t)
	if err := m.EditField(1, "action", "edited"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	boom := backend.Wrap(backend.ErrTransport, "save storyboard", "", errors.New("refused"))
	store := &fakeStore{saveFn: func(*api.StoryboardDocument) error { return boom }}
	if _, err := m.Save(context.Background(), store); !errors.Is(err, backend.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !m.Dirty() {
		t.Fatal("failed save cleared dirty flag")
	}
}

func TestMetrics(t *testing.T) {
	m := loadModel(t)
	metrics := m.Metrics()
	if metrics.Total != 3 || metrics.Narrated != 2 || metrics.Bridges != 1 {
		t.Fatalf("unexpected counts %+v", metrics)
	}
	if metrics.BridgeRatio != 33 || !metrics.MeetsBridgeTarget() {
		t.Fatalf("unexpected ratio %+v", metrics)
	}
	if metrics.EstimatedSeconds != 45 {
		t.Fatalf("estimated seconds = %d", metrics.EstimatedSeconds)
	}
	empty := ComputeMetrics(nil, DefaultSettings())
	if empty.BridgeRatio != 0 || empty.MeetsBridgeTarget() {
		t.Fatalf("unexpected empty metrics %+v", empty)
	}
}

func TestIndexIssuesKeepsUnindexed(t *testing.T) {
	m := loadModel(t)
	overlay := m.Overlay()
	if overlay.Grade != GradeWarn || overlay.Score != "72" {
		t.Fatalf("unexpected grade %q score %q", overlay.Grade, overlay.Score)
	}
	if got := overlay.Issues(2); len(got) != 1 || got[0].Severity != "error" {
		t.Fatalf("scene 2 issues = %+v", got)
	}
	if got := overlay.Issues(3); len(got) != 1 || got[0].Severity != "warning" {
		t.Fatalf("scene 3 issues = %+v", got)
	}
	if len(overlay.Unindexed) != 1 || overlay.Unindexed[0].Message != "Pacing is uneven" {
		t.Fatalf("unindexed = %+v", overlay.Unindexed)
	}
	if overlay.Count() != 3 {
		t.Fatalf("count = %d", overlay.Count())
	}
	if empty := IndexIssues(nil); empty.Count() != 0 || empty.Grade != GradeNone {
		t.Fatalf("unexpected empty overlay %+v", empty)
	}
}
