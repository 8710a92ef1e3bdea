package api_test

import (
	"encoding/json"
	"strings"
	"testing"

	"cutroom/internal/api"
)

func TestStoryboardDocumentPreservesUnknownFields(t *testing.T) {
	input := `{
		"storyboard": [
			{"scene_num": 1, "type": "narrated", "action": "Erik fells a pine", "camera_angle": "low", "elements": ["erik"]}
		],
		"total_scenes": 1,
		"generator_version": "v7"
	}`
	var doc api.StoryboardDocument
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Storyboard) != 1 || doc.Storyboard[0].Number != 1 {
		t.Fatalf("unexpected scenes: %+v", doc.Storyboard)
	}
	if doc.Storyboard[0].NumberKey() != "scene_num" {
		t.Fatalf("expected scene_num key, got %q", doc.Storyboard[0].NumberKey())
	}

	doc.Storyboard[0].Action = "Erik splits the log"
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(out)
	for _, want := range []string{`"generator_version":"v7"`, `"camera_angle":"low"`, `"scene_num":1`, `"Erik splits the log"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %s in %s", want, text)
		}
	}
	if strings.Contains(text, "scene_number") {
		t.Fatalf("unexpected scene_number key in %s", text)
	}
}

func TestPromptNormalizesLegacyLocation(t *testing.T) {
	input := `{"prompt_text": "@Erik walks in", "location_id": "cabin_site", "location_image": "cabin.png", "location_prompt": "a clearing"}`
	var prompt api.Prompt
	if err := json.Unmarshal([]byte(input), &prompt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(prompt.Locations) != 1 {
		t.Fatalf("expected one location, got %+v", prompt.Locations)
	}
	loc := prompt.Locations[0]
	if loc.ID != "cabin_site" || loc.Image != "cabin.png" || loc.Prompt != "a clearing" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	out, err := json.Marshal(prompt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "location_image") {
		t.Fatalf("legacy fields should not be written back: %s", out)
	}
}

func TestSceneAcceptsNumericDuration(t *testing.T) {
	var scene api.Scene
	if err := json.Unmarshal([]byte(`{"scene_number": 3, "duration": 10, "action": "x"}`), &scene); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if scene.Duration != "10" || scene.Number != 3 {
		t.Fatalf("unexpected scene: %+v", scene)
	}
}

func TestValidationAcceptsStringIssues(t *testing.T) {
	var v api.Validation
	if err := json.Unmarshal([]byte(`{"score": 7.5, "errors": ["Scene 2: missing action"], "warnings": [{"message": "Scene 4: long", "severity": "warning"}]}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Errors[0].Message != "Scene 2: missing action" || v.Warnings[0].Severity != "warning" {
		t.Fatalf("unexpected validation: %+v", v)
	}
	if v.Score != "7.5" {
		t.Fatalf("unexpected score: %q", v.Score)
	}
}

func TestSceneCloneIsDeep(t *testing.T) {
	scene := api.Scene{Elements: []string{"erik"}, Prompt: &api.Prompt{PromptText: "p", Locations: []api.PromptLocation{{ID: "a"}}}}
	clone := scene.Clone()
	clone.Elements[0] = "astrid"
	clone.Prompt.Locations[0].ID = "b"
	if scene.Elements[0] != "erik" || scene.Prompt.Locations[0].ID != "a" {
		t.Fatal("clone shares backing storage with original")
	}
}
