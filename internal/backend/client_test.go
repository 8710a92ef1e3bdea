package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cutroom/internal/api"
	"cutroom/internal/block"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL, TimeoutSeconds: 5, Retries: 2}, WithSleeper(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCreateProjectWithoutScript(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/project/create" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("title"); got != "Cabin Build" {
			t.Fatalf("unexpected title %q", got)
		}
		if _, _, err := r.FormFile("script"); err == nil {
			t.Fatal("expected no script part")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"project_id": "ab12cd34-cabin-build",
			"metadata":   map[string]any{"id": "ab12cd34-cabin-build", "title": "Cabin Build", "status": "created", "steps_completed": []string{}},
		})
	})
	resp, err := client.CreateProject(context.Background(), "  Cabin Build ", nil, "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if resp.ProjectID != "ab12cd34-cabin-build" || resp.Metadata.Status != api.StatusCreated {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Metadata.StepsCompleted) != 0 {
		t.Fatalf("expected no completed steps, got %v", resp.Metadata.StepsCompleted)
	}
}

func TestCreateProjectUploadsScript(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("script")
		if err != nil {
			t.Fatalf("expected script part: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "ep1.md" || string(data) != "# Intro" {
			t.Fatalf("unexpected script %q %q", header.Filename, data)
		}
		_, _ = w.Write([]byte(`{"project_id":"p1","metadata":{"id":"p1","title":"T","status":"script_uploaded","steps_completed":["script"]}}`))
	})
	resp, err := client.CreateProject(context.Background(), "T", strings.NewReader("# Intro"), "ep1.md")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if !resp.Metadata.HasStep(api.StepScript) {
		t.Fatalf("expected script step, got %v", resp.Metadata.StepsCompleted)
	}
}

func TestCreateProjectRejectsBlankTitleBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	_, err := client.CreateProject(context.Background(), "   ", nil, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no request, got %d", calls.Load())
	}
}

func TestApplicationErrorKeepsBackendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Script not found. Upload a script first."}`))
	})
	_, err := client.TriggerGeneration(context.Background(), "p1", GenerateBreakdown)
	if !errors.Is(err, ErrApplication) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected application validation error, got %v", err)
	}
	if got := ApplicationMessage(err); got != "Script not found. Upload a script first." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorPayloadWithOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"busy"}`))
	})
	_, err := client.GenerateChapterProduction(context.Background(), "p1", 0)
	if !errors.Is(err, ErrApplication) {
		t.Fatalf("expected application error, got %v", err)
	}
	if ApplicationMessage(err) != "busy" {
		t.Fatalf("unexpected message %q", ApplicationMessage(err))
	}
}

func TestTriggersAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})
	if _, err := client.TriggerGeneration(context.Background(), "p1", GenerateNarration); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single POST, got %d", calls.Load())
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var slept []time.Duration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"metadata":{"id":"p1","title":"T","status":"draft","steps_completed":[]}}`))
	}))
	defer srv.Close()
	client, err := NewClient(Config{BaseURL: srv.URL, Retries: 2},
		WithRetryBackoff(10*time.Millisecond, 15*time.Millisecond),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	project, err := client.GetProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if project.Metadata.ID != "p1" || calls.Load() != 3 {
		t.Fatalf("unexpected result %+v after %d calls", project.Metadata, calls.Load())
	}
	if len(slept) != 2 || slept[0] != 10*time.Millisecond || slept[1] != 15*time.Millisecond {
		t.Fatalf("unexpected backoff %v", slept)
	}
}

func TestGetDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Project not found"}`))
	})
	_, err := client.GetProject(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestTransportErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	client, err := NewClient(Config{BaseURL: url}, WithSleeper(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.TriggerGeneration(context.Background(), "p1", GenerateElements)
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestGetStoryboardNotGenerated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/project/p1/storyboard/break_2" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Storyboard not found"}`))
	})
	doc, err := client.GetStoryboard(context.Background(), "p1", block.Break(1))
	if doc != nil || !errors.Is(err, ErrNotGenerated) {
		t.Fatalf("expected not generated, got %v %v", doc, err)
	}
}

func TestSaveStoryboardChoosesEndpointByBlock(t *testing.T) {
	var gotPaths []string
	var bodies []map[string]json.RawMessage
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("unexpected method %s", r.Method)
		}
		gotPaths = append(gotPaths, r.URL.Path)
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		_, _ = w.Write([]byte(`{"status":"saved"}`))
	})
	doc := &api.StoryboardDocument{Storyboard: []api.Scene{{Number: 1, Type: api.SceneBridge, Action: "walk"}}, TotalScenes: 1}
	if _, err := client.SaveStoryboard(context.Background(), "p1", block.Chapter(2), doc); err != nil {
		t.Fatalf("save chapter: %v", err)
	}
	if _, err := client.SaveStoryboard(context.Background(), "p1", block.Intro(), doc); err != nil {
		t.Fatalf("save intro: %v", err)
	}
	if gotPaths[0] != "/api/project/p1/storyboard/2" || gotPaths[1] != "/api/project/p1/storyboard/intro" {
		t.Fatalf("unexpected paths %v", gotPaths)
	}
	if _, ok := bodies[0]["total_scenes"]; !ok {
		t.Fatalf("chapter save should send the full document: %v", bodies[0])
	}
	if len(bodies[1]) != 1 {
		t.Fatalf("block save should only send the scenes: %v", bodies[1])
	}
}

func TestUpdateSceneDefaultsAndValidation(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"status":"updating","message":"Updating scene 3..."}`))
	})
	if _, err := client.UpdateScene(context.Background(), "p1", UpdateSceneRequest{Block: block.Intro(), Action: " "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	resp, err := client.UpdateScene(context.Background(), "p1", UpdateSceneRequest{Block: block.Chapter(0), SceneIndex: 2, Action: "pour concrete"})
	if err != nil {
		t.Fatalf("UpdateScene: %v", err)
	}
	if resp.Status != "updating" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
	if body["block_folder"] != "chapter_1" || body["scene_type"] != "bridge" || body["duration"] != "8s" || body["regenerate_image"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestEditPromptRequiresFeedback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","prompt_text":"new","sfx":"wind"}`))
	})
	if _, err := client.EditPrompt(context.Background(), "p1", EditPromptRequest{Block: block.Close()}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	resp, err := client.EditPrompt(context.Background(), "p1", EditPromptRequest{Block: block.Close(), Feedback: "more dusk"})
	if err != nil {
		t.Fatalf("EditPrompt: %v", err)
	}
	if resp.PromptText != "new" || resp.SFX != "wind" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGenerateAudioSegment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.AudioSegmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SegmentID != "chapter_0" || req.SegmentType != "narration" {
			t.Fatalf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"filename":"chapter_0.mp3","duration_seconds":42.5,"file_size":1000,"segment_id":"chapter_0"}`))
	})
	if _, err := client.GenerateAudioSegment(context.Background(), "p1", api.AudioSegmentRequest{SegmentID: "chapter_0"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected voice id validation, got %v", err)
	}
	seg, err := client.GenerateAudioSegment(context.Background(), "p1", api.AudioSegmentRequest{SegmentID: "chapter_0", VoiceID: "v1", Model: "eleven_v3", Speed: 0.7, Stability: 0.5})
	if err != nil {
		t.Fatalf("GenerateAudioSegment: %v", err)
	}
	if seg.DurationSeconds != 42.5 || seg.Filename != "chapter_0.mp3" {
		t.Fatalf("unexpected segment %+v", seg)
	}
}

func TestProductionPromptsAcceptsArrayAndObject(t *testing.T) {
	payloads := []string{
		`[{"scene_num":1,"duration":5},{"number":2}]`,
		`{"scenes":[{"scene_num":1,"duration":"5s"},{"number":2}]}`,
	}
	for _, payload := range payloads {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/project/p1/production/0/prompts.json" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(payload))
		})
		prompts, err := client.GetProductionPrompts(context.Background(), "p1", 0)
		if err != nil {
			t.Fatalf("GetProductionPrompts(%s): %v", payload, err)
		}
		if len(prompts.Scenes) != 2 || prompts.TotalSeconds() != 13 {
			t.Fatalf("unexpected prompts %+v", prompts)
		}
		if prompts.Scenes[1].Num(1) != 2 {
			t.Fatalf("unexpected scene number %d", prompts.Scenes[1].Num(1))
		}
	}
}

func TestSaveShowSettingsSendsOnlySetFields(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"status":"saved","settings":{"presenter":{"name":"Jack Hale","elevenlabs_speed":0.8}}}`))
	})
	if _, err := client.SaveShowSettings(context.Background(), PresenterUpdate{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	speed := 0.8
	settings, err := client.SaveShowSettings(context.Background(), PresenterUpdate{Speed: &speed})
	if err != nil {
		t.Fatalf("SaveShowSettings: %v", err)
	}
	if len(body) != 1 || body["elevenlabs_speed"] != 0.8 {
		t.Fatalf("unexpected body %v", body)
	}
	if settings.Presenter.FirstName() != "Jack" {
		t.Fatalf("unexpected presenter %+v", settings.Presenter)
	}
}

func TestDownloadScriptStreamsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("INTRO\nhello"))
	})
	var buf bytes.Buffer
	if err := client.DownloadScript(context.Background(), "p1", &buf); err != nil {
		t.Fatalf("DownloadScript: %v", err)
	}
	if buf.String() != "INTRO\nhello" {
		t.Fatalf("unexpected body %q", buf.String())
	}
}

func TestAssetURLsEscapeSegments(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://studio.local:8000/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := client.ProgressURL("p 1"); got != "http://studio.local:8000/api/project/p%201/progress" {
		t.Fatalf("unexpected progress url %q", got)
	}
	if got := client.LocationURL("p1", "chapter_1/loc_a.png"); got != "http://studio.local:8000/api/project/p1/location/chapter_1/loc_a.png" {
		t.Fatalf("unexpected location url %q", got)
	}
	if got := client.SceneImageURL("p1", "intro", "scene_1.png"); got != "http://studio.local:8000/api/project/p1/scene-image/intro/scene_1.png" {
		t.Fatalf("unexpected scene url %q", got)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
