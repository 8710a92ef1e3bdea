package storyboard

import (
	"context"
	"fmt"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/backend"
	"cutroom/internal/block"
	"cutroom/internal/config"
	"cutroom/internal/textutil"
)

const (
	bridgeActionPlaceholder = "(describe the bridge action here)"
	bridgeReasonPlaceholder = "(why is this bridge needed?)"
)

// Store is the backend surface the model reads from and saves to.
type Store interface {
	GetStoryboard(ctx context.Context, projectID string, ref block.Ref) (*api.StoryboardDocument, error)
	SaveStoryboard(ctx context.Context, projectID string, ref block.Ref, doc *api.StoryboardDocument) (*backend.SaveResponse, error)
}

// Confirm asks the operator to approve a destructive action.
type Confirm func(prompt string) bool

// Settings holds the derived-metric parameters.
type Settings struct {
	SecondsPerScene   int
	BridgeRatioTarget int
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{SecondsPerScene: 15, BridgeRatioTarget: 30}
}

// SettingsFromConfig reads the storyboard section of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	settings := DefaultSettings()
	if cfg == nil {
		return settings
	}
	if cfg.Storyboard.SecondsPerScene > 0 {
		settings.SecondsPerScene = cfg.Storyboard.SecondsPerScene
	}
	if cfg.Storyboard.BridgeRatioTarget > 0 {
		settings.BridgeRatioTarget = cfg.Storyboard.BridgeRatioTarget
	}
	return settings
}

// Model is the local working copy of one block's storyboard. Edits stay local
// until Save pushes the whole document back.
type Model struct {
	projectID string
	ref       block.Ref
	doc       *api.StoryboardDocument
	settings  Settings
	dirty     bool
}

// Load fetches a block's storyboard. A block that has not been generated yet
// returns an error matching backend.ErrNotGenerated.
func Load(ctx context.Context, store Store, projectID string, ref block.Ref, settings Settings) (*Model, error) {
	doc, err := store.GetStoryboard(ctx, projectID, ref)
	if err != nil {
		return nil, err
	}
	return New(projectID, ref, doc, settings), nil
}

// New wraps an already fetched document.
func New(projectID string, ref block.Ref, doc *api.StoryboardDocument, settings Settings) *Model {
	if doc == nil {
		doc = &api.StoryboardDocument{}
	}
	if settings.SecondsPerScene <= 0 {
		settings.SecondsPerScene = DefaultSettings().SecondsPerScene
	}
	if settings.BridgeRatioTarget <= 0 {
		settings.BridgeRatioTarget = DefaultSettings().BridgeRatioTarget
	}
	return &Model{projectID: projectID, ref: ref, doc: doc, settings: settings}
}

// ProjectID returns the owning project.
func (m *Model) ProjectID() string { return m.projectID }

// Block returns the block this storyboard belongs to.
func (m *Model) Block() block.Ref { return m.ref }

// Document returns the working document. Callers must not mutate it directly.
func (m *Model) Document() *api.StoryboardDocument { return m.doc }

// Scenes returns the ordered scenes of the working copy.
func (m *Model) Scenes() []api.Scene { return m.doc.Storyboard }

// Len returns the number of scenes.
func (m *Model) Len() int { return len(m.doc.Storyboard) }

// Dirty reports whether there are unsaved local edits.
func (m *Model) Dirty() bool { return m.dirty }

// Scene returns a copy of the scene at index.
func (m *Model) Scene(index int) (api.Scene, error) {
	if err := m.checkIndex("scene", index); err != nil {
		return api.Scene{}, err
	}
	return m.doc.Storyboard[index].Clone(), nil
}

// InsertBridge adds a bridge scene right after the scene at after. The new
// scene inherits location, elements, time of day and weather from its
// predecessor. It returns the index of the inserted scene.
func (m *Model) InsertBridge(after int) (int, error) {
	if err := m.checkIndex("insert bridge", after); err != nil {
		return 0, err
	}
	prev := m.doc.Storyboard[after]
	bridge := api.Scene{
		Type:         api.SceneBridge,
		Action:       bridgeActionPlaceholder,
		LocationID:   prev.LocationID,
		Elements:     append([]string{}, prev.Elements...),
		Tools:        []string{},
		TimeOfDay:    prev.TimeOfDay,
		Weather:      prev.Weather,
		BridgeReason: api.StringPtr(bridgeReasonPlaceholder),
	}
	if prev.NumberKey() == "scene_num" {
		bridge.UseChapterNumbering()
	}

	at := after + 1
	scenes := make([]api.Scene, 0, len(m.doc.Storyboard)+1)
	scenes = append(scenes, m.doc.Storyboard[:at]...)
	scenes = append(scenes, bridge)
	scenes = append(scenes, m.doc.Storyboard[at:]...)
	m.doc.Storyboard = scenes
	m.structureChanged()
	return at, nil
}

// DeleteConfirmText returns the confirmation text shown before deleting a scene.
func DeleteConfirmText(index int, scene api.Scene) string {
	desc := scene.Action
	if desc == "" {
		desc = fmt.Sprintf("Scene %d", index+1)
	}
	return fmt.Sprintf("Delete scene %d?\n\n%q", index+1, textutil.Truncate(desc, 80))
}

// DeleteScene removes the scene at index once confirm approves. A nil
// confirm counts as approval.
func (m *Model) DeleteScene(index int, confirm Confirm) error {
	if err := m.checkIndex("delete scene", index); err != nil {
		return err
	}
	if confirm != nil && !confirm(DeleteConfirmText(index, m.doc.Storyboard[index])) {
		return backend.Wrap(backend.ErrCancelled, "delete scene", fmt.Sprintf("scene %d kept", index+1), nil)
	}
	m.doc.Storyboard = append(m.doc.Storyboard[:index], m.doc.Storyboard[index+1:]...)
	m.structureChanged()
	return nil
}

// EditableFields lists the field names accepted by EditField.
var EditableFields = []string{
	"action", "narration_excerpt", "narration", "location_id", "time_of_day", "weather",
	"progress_delta", "bridge_reason", "notes", "duration", "type", "elements", "tools",
}

// EditField sets one scene field locally. Elements and tools take a comma
// separated list; optional text fields are cleared by an empty value.
func (m *Model) EditField(index int, field, value string) error {
	if err := m.checkIndex("edit scene", index); err != nil {
		return err
	}
	field = strings.TrimSpace(field)
	scene := &m.doc.Storyboard[index]
	switch field {
	case "action":
		scene.Action = value
	case "narration_excerpt":
		scene.NarrationExcerpt = optional(value)
	case "narration":
		scene.Narration = value
	case "location_id":
		scene.LocationID = strings.TrimSpace(value)
	case "time_of_day":
		scene.TimeOfDay = value
	case "weather":
		scene.Weather = value
	case "progress_delta":
		scene.ProgressDelta = optional(value)
	case "bridge_reason":
		scene.BridgeReason = optional(value)
	case "notes":
		scene.Notes = optional(value)
	case "duration":
		scene.Duration = api.FlexString(strings.TrimSpace(value))
	case "type":
		kind := strings.ToLower(strings.TrimSpace(value))
		if !api.ValidSceneType(kind) {
			return backend.Wrap(backend.ErrValidation, "edit scene", fmt.Sprintf("invalid scene type %q (want one of %s)", value, strings.Join(api.SceneTypes, ", ")), nil)
		}
		scene.Type = kind
	case "elements":
		scene.Elements = SplitList(value)
	case "tools":
		scene.Tools = SplitList(value)
	default:
		return backend.Wrap(backend.ErrValidation, "edit scene", fmt.Sprintf("field %q is not editable", field), nil)
	}
	m.dirty = true
	if field == "type" {
		m.recompute()
	}
	return nil
}

// TogglePromptDone flips the done flag of the scene's prompt and returns the
// new value. Scenes without a prompt cannot be toggled.
func (m *Model) TogglePromptDone(index int) (bool, error) {
	if err := m.checkIndex("toggle prompt", index); err != nil {
		return false, err
	}
	scene := &m.doc.Storyboard[index]
	if scene.Prompt == nil {
		return false, backend.Wrap(backend.ErrValidation, "toggle prompt", fmt.Sprintf("scene %d has no prompt", index+1), nil)
	}
	scene.Prompt.Done = !scene.Prompt.Done
	m.dirty = true
	return scene.Prompt.Done, nil
}

// Save recomputes the derived totals and pushes the working copy.
func (m *Model) Save(ctx context.Context, store Store) (*backend.SaveResponse, error) {
	m.recompute()
	m.doc.EstimatedVideoDurationSeconds = len(m.doc.Storyboard) * m.settings.SecondsPerScene
	resp, err := store.SaveStoryboard(ctx, m.projectID, m.ref, m.doc)
	if err != nil {
		return nil, err
	}
	m.dirty = false
	return resp, nil
}

// Metrics returns the derived counts of the working copy.
func (m *Model) Metrics() Metrics {
	return ComputeMetrics(m.doc.Storyboard, m.settings)
}

// Overlay indexes the document's validation issues by scene number.
func (m *Model) Overlay() Overlay {
	return IndexIssues(m.doc.Validation)
}

func (m *Model) structureChanged() {
	Renumber(m.doc.Storyboard)
	m.recompute()
	m.dirty = true
}

func (m *Model) recompute() {
	metrics := m.Metrics()
	m.doc.TotalScenes = metrics.Total
	m.doc.TotalNarrated = metrics.Narrated
	m.doc.TotalBridges = metrics.Bridges
}

func (m *Model) checkIndex(op string, index int) error {
	if index < 0 || index >= len(m.doc.Storyboard) {
		return backend.Wrap(backend.ErrValidation, op, fmt.Sprintf("scene index %d out of range (have %d scenes)", index, len(m.doc.Storyboard)), nil)
	}
	return nil
}

// Renumber rewrites every scene number to its position plus one.
func Renumber(scenes []api.Scene) {
	for i := range scenes {
		scenes[i].Number = i + 1
	}
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return api.StringPtr(value)
}
