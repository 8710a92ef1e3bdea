package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Scene types.
const (
	SceneNarrated  = "narrated"
	SceneBridge    = "bridge"
	ScenePresenter = "presenter"
	SceneSilent    = "silent"
)

// SceneTypes lists every accepted scene type in display order.
var SceneTypes = []string{SceneNarrated, SceneBridge, ScenePresenter, SceneSilent}

// ValidSceneType reports whether value is a known scene type.
func ValidSceneType(value string) bool {
	for _, t := range SceneTypes {
		if t == value {
			return true
		}
	}
	return false
}

const (
	numberKeyChapter = "scene_num"
	numberKeyGrid    = "scene_number"
)

// Scene is one storyboard entry. Chapter storyboards number scenes with
// scene_num while block storyboards use scene_number; the key seen on load
// is the key written on save.
type Scene struct {
	Number           int        `json:"-"`
	Type             string     `json:"type,omitempty"`
	Action           string     `json:"action"`
	NarrationExcerpt *string    `json:"narration_excerpt,omitempty"`
	Narration        string     `json:"narration,omitempty"`
	LocationID       string     `json:"location_id,omitempty"`
	Elements         []string   `json:"elements,omitempty"`
	Tools            []string   `json:"tools,omitempty"`
	TimeOfDay        string     `json:"time_of_day,omitempty"`
	Weather          string     `json:"weather,omitempty"`
	ProgressDelta    *string    `json:"progress_delta,omitempty"`
	BridgeReason     *string    `json:"bridge_reason,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	Duration         FlexString `json:"duration,omitempty"`
	Camera           string     `json:"camera,omitempty"`
	VisualDesc       string     `json:"visual_description,omitempty"`
	SceneImage       string     `json:"scene_image,omitempty"`
	Prompt           *Prompt    `json:"prompt,omitempty"`

	Extra     Extras `json:"-"`
	numberKey string
}

type sceneFields Scene

var sceneKnownKeys = []string{
	numberKeyChapter, numberKeyGrid, "number", "type", "action", "narration_excerpt", "narration",
	"location_id", "elements", "tools", "time_of_day", "weather", "progress_delta",
	"bridge_reason", "notes", "duration", "camera", "visual_description", "scene_image", "prompt",
}

func (s *Scene) UnmarshalJSON(data []byte) error {
	var fields sceneFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var numbers struct {
		SceneNum    *int `json:"scene_num"`
		SceneNumber *int `json:"scene_number"`
		Number      *int `json:"number"`
	}
	if err := json.Unmarshal(data, &numbers); err != nil {
		return err
	}
	extras, err := splitExtras(data, sceneKnownKeys...)
	if err != nil {
		return err
	}
	*s = Scene(fields)
	switch {
	case numbers.SceneNum != nil:
		s.Number, s.numberKey = *numbers.SceneNum, numberKeyChapter
	case numbers.SceneNumber != nil:
		s.Number, s.numberKey = *numbers.SceneNumber, numberKeyGrid
	case numbers.Number != nil:
		s.Number, s.numberKey = *numbers.Number, "number"
	}
	s.Extra = extras
	return nil
}

func (s Scene) MarshalJSON() ([]byte, error) {
	key := s.numberKey
	if key == "" {
		key = numberKeyGrid
	}
	return mergeExtras(sceneFields(s), s.Extra, map[string]any{key: s.Number})
}

// UseChapterNumbering makes the scene serialize its number as scene_num.
func (s *Scene) UseChapterNumbering() { s.numberKey = numberKeyChapter }

// NumberKey reports the JSON key used for the scene number.
func (s Scene) NumberKey() string {
	if s.numberKey == "" {
		return numberKeyGrid
	}
	return s.numberKey
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := s
	out.Elements = append([]string(nil), s.Elements...)
	out.Tools = append([]string(nil), s.Tools...)
	out.NarrationExcerpt = cloneString(s.NarrationExcerpt)
	out.ProgressDelta = cloneString(s.ProgressDelta)
	out.BridgeReason = cloneString(s.BridgeReason)
	out.Notes = cloneString(s.Notes)
	if s.Prompt != nil {
		p := s.Prompt.Clone()
		out.Prompt = &p
	}
	if s.Extra != nil {
		out.Extra = make(Extras, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

// StringPtr returns a pointer to value.
func StringPtr(value string) *string { return &value }

// Deref returns the pointed-to string or "".
func Deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// PromptLocation is a location reference image attached to a prompt.
type PromptLocation struct {
	ID     string `json:"id"`
	Image  string `json:"image,omitempty"`
	Prompt string `json:"prompt"`
}

// Prompt is the video-generation instruction attached to a scene.
type Prompt struct {
	PromptText string           `json:"prompt_text"`
	SFX        string           `json:"sfx,omitempty"`
	Locations  []PromptLocation `json:"locations,omitempty"`
	Done       bool             `json:"done"`

	Extra Extras `json:"-"`
}

type promptFields Prompt

func (p *Prompt) UnmarshalJSON(data []byte) error {
	var fields promptFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var legacy struct {
		LocationID     string `json:"location_id"`
		LocationImage  string `json:"location_image"`
		LocationPrompt string `json:"location_prompt"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	extras, err := splitExtras(data, "prompt_text", "sfx", "locations", "done", "location_id", "location_image", "location_prompt")
	if err != nil {
		return err
	}
	*p = Prompt(fields)
	if len(p.Locations) == 0 && legacy.LocationID != "" {
		p.Locations = []PromptLocation{{ID: legacy.LocationID, Image: legacy.LocationImage, Prompt: legacy.LocationPrompt}}
	}
	p.Extra = extras
	return nil
}

func (p Prompt) MarshalJSON() ([]byte, error) {
	return mergeExtras(promptFields(p), p.Extra, nil)
}

// Clone returns a deep copy of the prompt.
func (p Prompt) Clone() Prompt {
	out := p
	out.Locations = append([]PromptLocation(nil), p.Locations...)
	return out
}

// Issue is one validation finding.
type Issue struct {
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

func (i *Issue) UnmarshalJSON(data []byte) error {
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(data, &i.Message)
	}
	type issueFields Issue
	var fields issueFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*i = Issue(fields)
	return nil
}

// Validation is the backend's quality assessment of a storyboard.
type Validation struct {
	Score    FlexString `json:"score,omitempty"`
	Summary  string     `json:"summary,omitempty"`
	Errors   []Issue    `json:"errors,omitempty"`
	Warnings []Issue    `json:"warnings,omitempty"`
}

// StoryboardDocument is the full storyboard resource for one block.
type StoryboardDocument struct {
	Storyboard                    []Scene     `json:"storyboard"`
	Validation                    *Validation `json:"validation,omitempty"`
	TotalScenes                   int         `json:"total_scenes"`
	TotalNarrated                 int         `json:"total_narrated"`
	TotalBridges                  int         `json:"total_bridges"`
	EstimatedVideoDurationSeconds int         `json:"estimated_video_duration_seconds"`

	Extra Extras `json:"-"`
}

type documentFields StoryboardDocument

func (d *StoryboardDocument) UnmarshalJSON(data []byte) error {
	var fields documentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extras, err := splitExtras(data, "storyboard", "validation", "total_scenes", "total_narrated", "total_bridges", "estimated_video_duration_seconds")
	if err != nil {
		return err
	}
	*d = StoryboardDocument(fields)
	d.Extra = extras
	return nil
}

func (d StoryboardDocument) MarshalJSON() ([]byte, error) {
	if d.Storyboard == nil {
		d.Storyboard = []Scene{}
	}
	return mergeExtras(documentFields(d), d.Extra, nil)
}

// ParseSceneNumber parses a decimal scene number, returning 0 when invalid.
func ParseSceneNumber(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
