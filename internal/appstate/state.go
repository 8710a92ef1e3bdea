package appstate

import (
	"time"

	"cutroom/internal/api"
)

// LogLine is one entry in the visible progress log.
type LogLine struct {
	Scope string
	Event api.ProgressEvent
	At    time.Time
}

// State is the client-side application state. Values handed out by
// Store.Snapshot must be treated as read-only.
type State struct {
	Project     *api.Project
	Busy        bool
	BusyStep    string
	Log         []LogLine
	Storyboards map[string]*api.StoryboardDocument
	Pending     map[string]bool
	Settings    *api.ShowSettings
}

// ProjectID returns the loaded project's id or "".
func (s State) ProjectID() string {
	if s.Project == nil {
		return ""
	}
	return s.Project.Metadata.ID
}

// Steps returns the loaded project's completed steps.
func (s State) Steps() []string {
	if s.Project == nil {
		return nil
	}
	return s.Project.Metadata.StepsCompleted
}

func (s State) clone() State {
	out := s
	out.Log = append([]LogLine(nil), s.Log...)
	out.Storyboards = make(map[string]*api.StoryboardDocument, len(s.Storyboards))
	for k, v := range s.Storyboards {
		out.Storyboards[k] = v
	}
	out.Pending = make(map[string]bool, len(s.Pending))
	for k, v := range s.Pending {
		out.Pending[k] = v
	}
	return out
}
