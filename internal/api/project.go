package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Pipeline steps reported in steps_completed.
const (
	StepScript       = "script"
	StepStory        = "story"
	StepBreakdown    = "breakdown"
	StepNarration    = "narration"
	StepVoice        = "voice"
	StepElements     = "elements"
	StepScenePrompts = "scene_prompts"
	StepProduction   = "production"
)

// Project statuses. The backend also reports legacy values such as
// "created" and "script_uploaded"; those are displayed verbatim.
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusCreated    = "created"
)

// Metadata is the project header returned by create and get.
type Metadata struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"created_at,omitempty"`
	Duration       int      `json:"duration_minutes,omitempty"`
	EpisodeType    string   `json:"episode_type,omitempty"`
	StepsCompleted []string `json:"steps_completed"`
}

// HasStep reports whether step is in the completed set.
func (m Metadata) HasStep(step string) bool {
	for _, s := range m.StepsCompleted {
		if s == step {
			return true
		}
	}
	return false
}

// Project is the full project snapshot.
type Project struct {
	Metadata      Metadata        `json:"metadata"`
	Script        *Script         `json:"script"`
	Story         *Story          `json:"story"`
	Narration     *Narration      `json:"narration"`
	Elements      []Element       `json:"elements"`
	ElementImages []string        `json:"element_images"`
	ScenePrompts  json.RawMessage `json:"scene_prompts,omitempty"`
	QualityReport json.RawMessage `json:"quality_report,omitempty"`
	AudioManifest AudioManifest   `json:"audio_manifest,omitempty"`
}

// CreateProjectResponse is returned by the create endpoint.
type CreateProjectResponse struct {
	ProjectID string   `json:"project_id"`
	Metadata  Metadata `json:"metadata"`
}

// Section types in a parsed script.
const (
	SectionIntro     = "intro"
	SectionPhase     = "phase"
	SectionChapter   = "chapter"
	SectionJackBreak = "jack_break"
	SectionOutro     = "outro"
)

// Section is one parsed script section.
type Section struct {
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Index     *int       `json:"index,omitempty"`
	Duration  FlexString `json:"duration,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Speaker   string     `json:"speaker,omitempty"`
	Text      string     `json:"text"`
}

// Script is the parsed episode script.
type Script struct {
	Sections      []Section  `json:"sections"`
	TotalDuration FlexString `json:"total_duration,omitempty"`
}

// Arc is a narrative phase plotted on the tension curve.
type Arc struct {
	Phase       string  `json:"phase"`
	Percentage  float64 `json:"percentage"`
	Tension     float64 `json:"tension"`
	Description string  `json:"description,omitempty"`
	DayRange    string  `json:"day_range,omitempty"`
}

// Conflict is a dated setback plotted on the tension curve.
type Conflict struct {
	Day         float64 `json:"day"`
	Severity    float64 `json:"severity"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
}

// Story is the generated breakdown. Character, location, construction and
// timeline records are kept opaque.
type Story struct {
	Character    json.RawMessage `json:"character,omitempty"`
	Location     json.RawMessage `json:"location,omitempty"`
	Construction json.RawMessage `json:"construction,omitempty"`
	Timeline     json.RawMessage `json:"timeline,omitempty"`
	NarrativeArc []Arc           `json:"narrative_arcs"`
	LegacyArc    []Arc           `json:"narrative_arc,omitempty"`
	Conflicts    []Conflict      `json:"conflicts,omitempty"`
	TotalDays    float64         `json:"total_days,omitempty"`
	Title        string          `json:"title,omitempty"`
}

// Arcs returns the narrative arcs, accepting the older singular key.
func (s *Story) Arcs() []Arc {
	if s == nil {
		return nil
	}
	if len(s.NarrativeArc) > 0 {
		return s.NarrativeArc
	}
	return s.LegacyArc
}

// Days returns timeline.total_days, then total_days, or zero when neither
// is present.
func (s *Story) Days() float64 {
	if s == nil {
		return 0
	}
	var timeline struct {
		TotalDays FlexString `json:"total_days"`
	}
	if len(s.Timeline) > 0 && json.Unmarshal(s.Timeline, &timeline) == nil {
		if days := leadingInt(timeline.TotalDays.String()); days > 0 {
			return float64(days)
		}
	}
	return s.TotalDays
}

// Summary extracts the display names from the opaque records.
func (s *Story) Summary() StorySummary {
	var summary StorySummary
	if s == nil {
		return summary
	}
	var named struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(s.Character, &named) == nil {
		summary.Character = named.Name
	}
	named.Name = ""
	if json.Unmarshal(s.Location, &named) == nil {
		summary.Location = named.Name
	}
	var construction struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(s.Construction, &construction) == nil {
		summary.Construction = construction.Type
	}
	summary.Days = s.Days()
	return summary
}

// StorySummary is the one-line breakdown header.
type StorySummary struct {
	Character    string
	Location     string
	Construction string
	Days         float64
}

func leadingInt(value string) int {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0
	}
	return n
}

// NarrationBlock is spoken text with its duration label.
type NarrationBlock struct {
	Text     string     `json:"text"`
	Duration FlexString `json:"duration,omitempty"`
	Teaser   string     `json:"teaser,omitempty"`
}

// PhaseNarration is the narration for one chapter.
type PhaseNarration struct {
	PhaseName  string `json:"phase_name"`
	Chapter    string `json:"chapter,omitempty"`
	WordCount  int    `json:"word_count,omitempty"`
	Text       string `json:"narration"`
	SceneRange string `json:"scene_range,omitempty"`
}

// BreakNarration is presenter narration between chapters.
type BreakNarration struct {
	AfterPhase int        `json:"after_phase_index"`
	Text       string     `json:"text"`
	Duration   FlexString `json:"duration,omitempty"`
}

// Narration holds every spoken segment of the episode.
type Narration struct {
	Intro  *NarrationBlock  `json:"intro,omitempty"`
	Close  *NarrationBlock  `json:"close,omitempty"`
	Phases []PhaseNarration `json:"phases"`
	Breaks []BreakNarration `json:"breaks,omitempty"`
}

// Element categories.
const (
	CategoryCharacter   = "character"
	CategoryVehicle     = "vehicle"
	CategoryObject      = "object"
	CategoryEnvironment = "environment"
	CategoryPresenter   = "presenter"
)

// Element is a recurring visual asset.
type Element struct {
	ElementID     string   `json:"element_id"`
	Category      string   `json:"category"`
	Label         string   `json:"label"`
	Description   string   `json:"description,omitempty"`
	ImageFilename string   `json:"image_filename,omitempty"`
	PromptName    string   `json:"prompt_name,omitempty"`
	AppearsIn     []string `json:"appears_in,omitempty"`
}

// ElementResponse wraps element mutations.
type ElementResponse struct {
	Status  string  `json:"status"`
	Element Element `json:"element"`
}

// AudioSegment is one generated voice file.
type AudioSegment struct {
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileSize        int64   `json:"file_size,omitempty"`
	SegmentID       string  `json:"segment_id,omitempty"`
	SegmentType     string  `json:"segment_type,omitempty"`
}

// AudioManifest maps segment ids (intro, chapter_0, break_0, close) to audio.
type AudioManifest map[string]AudioSegment

// AudioSegmentRequest is the body of generate_audio_segment.
type AudioSegmentRequest struct {
	SegmentID   string  `json:"segment_id"`
	SegmentType string  `json:"segment_type"`
	VoiceID     string  `json:"voice_id"`
	Model       string  `json:"model"`
	Speed       float64 `json:"speed"`
	Stability   float64 `json:"stability"`
}

// Presenter is the show host configuration.
type Presenter struct {
	Name                string  `json:"name"`
	TurnaroundImage     string  `json:"turnaround_image"`
	ElevenLabsVoiceID   string  `json:"elevenlabs_voice_id"`
	ElevenLabsModel     string  `json:"elevenlabs_model"`
	ElevenLabsStability float64 `json:"elevenlabs_stability"`
	ElevenLabsSpeed     float64 `json:"elevenlabs_speed"`
}

// FirstName returns the first word of the presenter name.
func (p Presenter) FirstName() string {
	for i, r := range p.Name {
		if r == ' ' {
			return p.Name[:i]
		}
	}
	return p.Name
}

// ShowSettings is the global show configuration.
type ShowSettings struct {
	Presenter Presenter `json:"presenter"`
}

// ProgressEvent is one message on the progress stream.
type ProgressEvent struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Progress event types.
const (
	EventInfo     = "info"
	EventSuccess  = "success"
	EventWarning  = "warning"
	EventError    = "error"
	EventComplete = "complete"
	EventBatch    = "batch"
)

// Terminal reports whether the event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
