package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cutroom/internal/api"
	"cutroom/internal/backend"
)

func cabin() api.Project {
	return api.Project{Metadata: api.Metadata{
		ID:             "p1",
		Title:          "Cabin Build",
		Status:         api.StatusCreated,
		StepsCompleted: []string{api.StepScript},
	}}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, env, nil, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}

	if _, _, err := runCLI(t, env, nil, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}

	out, _, err = runCLI(t, env, nil, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[backend]\nbase_uri = \"http://x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, env, nil, "config", "validate"); err == nil {
		t.Fatal("expected unknown key to fail validation")
	}
}

func TestProjectsCreateListOpen(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, nil, "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	requireContains(t, out, "No projects yet.")

	env.createProject(t, cabin())

	out, _, err = runCLI(t, env, nil, "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	requireContains(t, out, "Cabin Build")
	requireContains(t, out, "p1")

	out, _, err = runCLI(t, env, nil, "projects", "list", "--json")
	if err != nil {
		t.Fatalf("projects list --json: %v", err)
	}
	requireContains(t, out, `"p1"`)

	out, _, err = runCLI(t, env, nil, "projects", "open", "p1")
	if err != nil {
		t.Fatalf("projects open: %v", err)
	}
	requireContains(t, out, "Opened Cabin Build (p1)")
}

func TestCommandsNeedAProject(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, nil, "show")
	if err == nil || !strings.Contains(err.Error(), "no project selected") {
		t.Fatalf("expected missing project error, got %v", err)
	}
}

func TestProjectsDeleteAsksFirst(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, cabin())

	_, stderr, err := runCLI(t, env, strings.NewReader("n\n"), "projects", "delete", "p1")
	if !errors.Is(err, backend.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	requireContains(t, stderr, "[y/N]")
	if n := env.fb.Count(http.MethodDelete, "/api/project/p1"); n != 0 {
		t.Fatalf("expected no delete request, got %d", n)
	}

	out, _, err := runCLI(t, env, nil, "--yes", "projects", "delete", "p1")
	if err != nil {
		t.Fatalf("projects delete --yes: %v", err)
	}
	requireContains(t, out, "Deleted project p1")

	out, _, err = runCLI(t, env, nil, "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	requireContains(t, out, "No projects yet.")
}

func TestGenerateFollowsProgressAndRecordsLog(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, cabin())
	env.fb.JSON(http.MethodPost, "/api/project/p1/generate-breakdown", http.StatusOK, map[string]string{"status": "started"})
	env.fb.Events("p1",
		api.ProgressEvent{Message: "Reading script", Type: api.EventInfo},
		api.ProgressEvent{Message: "Breakdown ready", Type: api.EventComplete},
	)

	out, _, err := runCLI(t, env, nil, "generate", "breakdown")
	if err != nil {
		t.Fatalf("generate breakdown: %v", err)
	}
	requireContains(t, out, "Reading script")
	requireContains(t, out, "Breakdown ready")
	if n := env.fb.Count(http.MethodPost, "/api/project/p1/generate-breakdown"); n != 1 {
		t.Fatalf("expected one trigger, got %d", n)
	}

	out, _, err = runCLI(t, env, nil, "log")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	requireContains(t, out, "Reading script")

	if _, _, err := runCLI(t, env, nil, "log", "--clear"); err != nil {
		t.Fatalf("log --clear: %v", err)
	}
	out, _, err = runCLI(t, env, nil, "log")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if strings.Contains(out, "Reading script") {
		t.Fatalf("expected cleared log, got %s", out)
	}
}

func TestGenerateRejectsUnknownStep(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, nil, "generate", "everything")
	if !errors.Is(err, backend.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStoryboardStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, cabin())
	env.fb.JSON(http.MethodGet, "/api/project/p1/storyboard/chapter_1", http.StatusOK, map[string]any{
		"storyboard": []map[string]any{
			{"type": api.SceneNarrated, "action": "Felling the first spruce", "narration_excerpt": "We start with the trees."},
			{"type": api.SceneBridge, "action": "Dragging logs to the clearing"},
		},
		"total_scenes": 2,
	})

	out, _, err := runCLI(t, env, nil, "storyboard", "status", "chapter_1")
	if err != nil {
		t.Fatalf("storyboard status: %v", err)
	}
	requireContains(t, out, "chapter_1 (backend)")
	requireContains(t, out, "Scenes: 2")
	requireContains(t, out, "Felling the first spruce")
}

func TestStoryboardStatusNotGenerated(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, cabin())

	_, _, err := runCLI(t, env, nil, "storyboard", "status", "intro")
	if !errors.Is(err, backend.ErrNotGenerated) {
		t.Fatalf("expected not generated, got %v", err)
	}
}

func TestCurvePrintsSparklineAndWritesSVG(t *testing.T) {
	env := setupCLITestEnv(t)
	project := cabin()
	project.Metadata.StepsCompleted = []string{api.StepScript, api.StepBreakdown}
	project.Story = &api.Story{NarrativeArc: []api.Arc{
		{Phase: "Arrival", Percentage: 40, Tension: 30},
		{Phase: "Storm", Percentage: 60, Tension: 90},
	}}
	env.createProject(t, project)

	out, _, err := runCLI(t, env, nil, "curve", "--svg=cabin.svg")
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	requireContains(t, out, "Storm")
	target := filepath.Join(env.exportDir, "cabin.svg")
	requireContains(t, out, "Wrote "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.HasPrefix(string(data), "<svg") {
		t.Fatalf("unexpected svg: %s", data)
	}
}

func TestCurveWithoutBreakdown(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, cabin())
	if _, _, err := runCLI(t, env, nil, "curve"); err == nil {
		t.Fatal("expected an error without a story breakdown")
	}
}

func TestChapterIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1", want: 0},
		{in: " 3 ", want: 2},
		{in: "0", wantErr: true},
		{in: "two", wantErr: true},
	}
	for _, tt := range tests {
		got, err := chapterIndex(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("chapterIndex(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("chapterIndex(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestDefaultCurveName(t *testing.T) {
	if got := defaultCurveName(""); got != "curve_tension.svg" {
		t.Fatalf("defaultCurveName(\"\") = %q", got)
	}
	if got := defaultCurveName("Cabin: Build"); strings.Contains(got, ":") || !strings.HasSuffix(got, "_tension.svg") {
		t.Fatalf("defaultCurveName = %q", got)
	}
}

func TestFramesRejectSceneNumbersBelowOne(t *testing.T) {
	env := setupCLITestEnv(t)
	env.createProject(t, cabin())
	image := filepath.Join(env.baseDir, "frame.png")
	if err := os.WriteFile(image, []byte("png"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "regenerate zero", args: []string{"frames", "regenerate", "0"}},
		{name: "regenerate negative", args: []string{"frames", "regenerate", "--", "-2"}},
		{name: "upload zero", args: []string{"frames", "upload", "0", image}},
		{name: "not a number", args: []string{"frames", "regenerate", "first"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(env.fb.Requests())
			_, _, err := runCLI(t, env, nil, tt.args...)
			if err == nil || !strings.Contains(err.Error(), "invalid scene") {
				t.Fatalf("expected invalid scene error, got %v", err)
			}
			if after := len(env.fb.Requests()); after != before {
				t.Fatalf("expected no backend requests, got %d", after-before)
			}
		})
	}
}

func TestSceneNumber(t *testing.T) {
	if n, err := sceneNumber(" 4 "); err != nil || n != 4 {
		t.Fatalf("sceneNumber(4) = %d, %v", n, err)
	}
	if _, err := sceneNumber("0"); err == nil {
		t.Fatal("expected 0 to be rejected")
	}
}
