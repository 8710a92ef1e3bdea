package appstate

import (
	"time"

	"cutroom/internal/api"
)

// Action is a state transition. Every mutation of State goes through one of
// the action types below.
type Action interface {
	isAction()
}

// ProjectLoaded replaces the project snapshot wholesale. Loaded block
// storyboards are dropped when the project id changes.
type ProjectLoaded struct{ Project *api.Project }

// ProjectClosed clears the current project.
type ProjectClosed struct{}

// BusyChanged sets the single in-flight generation flag.
type BusyChanged struct {
	Busy bool
	Step string
}

// LogCleared empties the progress log.
type LogCleared struct{}

// LogAppended appends one progress line.
type LogAppended struct {
	Scope string
	Event api.ProgressEvent
	At    time.Time
}

// StoryboardLoaded stores a block's storyboard.
type StoryboardLoaded struct {
	Block    string
	Document *api.StoryboardDocument
}

// StoryboardPending marks a block as waiting for generation to finish.
type StoryboardPending struct {
	Block   string
	Pending bool
}

// SceneReplaced swaps one scene of a loaded block.
type SceneReplaced struct {
	Block string
	Index int
	Scene api.Scene
}

// PromptMerged writes an edited prompt back into a scene.
type PromptMerged struct {
	Block      string
	Index      int
	PromptText string
	SFX        string
}

// LocationPromptSet updates the prompt of every location with the given id
// in every loaded block.
type LocationPromptSet struct {
	LocationID string
	Prompt     string
	Image      string
}

// ElementUpdated replaces an element record by id, appending unknown ids.
type ElementUpdated struct{ Element api.Element }

// AudioGenerated records a generated voice segment in the manifest.
type AudioGenerated struct {
	SegmentID string
	Segment   api.AudioSegment
}

// SettingsLoaded stores the show settings.
type SettingsLoaded struct{ Settings *api.ShowSettings }

func (ProjectLoaded) isAction()     {}
func (ProjectClosed) isAction()     {}
func (BusyChanged) isAction()       {}
func (LogCleared) isAction()        {}
func (LogAppended) isAction()       {}
func (StoryboardLoaded) isAction()  {}
func (StoryboardPending) isAction() {}
func (SceneReplaced) isAction()     {}
func (PromptMerged) isAction()      {}
func (LocationPromptSet) isAction() {}
func (ElementUpdated) isAction()    {}
func (AudioGenerated) isAction()    {}
func (SettingsLoaded) isAction()    {}
