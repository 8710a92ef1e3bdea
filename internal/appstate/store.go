package appstate

import (
	"fmt"
	"sync"
	"time"

	"cutroom/internal/api"
)

// Listener observes every dispatched action after it is applied.
type Listener func(State, Action)

// Store serializes all state mutation through Dispatch.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state:     State{Storyboards: map[string]*api.StoryboardDocument{}, Pending: map[string]bool{}},
		listeners: map[int]Listener{},
		now:       time.Now,
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers a listener and returns its removal func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Dispatch applies action and notifies listeners outside the lock.
func (s *Store) Dispatch(action Action) error {
	_, err := s.apply(action, nil)
	return err
}

// TryBusy sets the busy flag unless it is already set. It reports whether the
// caller now owns the flag.
func (s *Store) TryBusy(step string) bool {
	ok, err := s.apply(BusyChanged{Busy: true, Step: step}, func(st State) bool { return !st.Busy })
	return ok && err == nil
}

// TryPending marks a block as waiting for generation unless it already is.
func (s *Store) TryPending(folder string) bool {
	ok, err := s.apply(StoryboardPending{Block: folder, Pending: true}, func(st State) bool { return !st.Pending[folder] })
	return ok && err == nil
}

func (s *Store) apply(action Action, guard func(State) bool) (bool, error) {
	s.mu.Lock()
	if guard != nil && !guard(s.state) {
		s.mu.Unlock()
		return false, nil
	}
	if entry, ok := action.(LogAppended); ok && entry.At.IsZero() {
		entry.At = s.now()
		action = entry
	}
	next, err := Reduce(s.state, action)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.state = next
	snapshot := next.clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot, action)
	}
	return true, nil
}

// Reduce computes the state that follows action. Nested values are copied
// before they change so earlier snapshots stay intact.
func Reduce(state State, action Action) (State, error) {
	next := state.clone()
	switch a := action.(type) {
	case ProjectLoaded:
		if a.Project == nil {
			return state, fmt.Errorf("project loaded: nil project")
		}
		if next.ProjectID() != a.Project.Metadata.ID {
			next.Storyboards = map[string]*api.StoryboardDocument{}
			next.Pending = map[string]bool{}
		}
		next.Project = a.Project
	case ProjectClosed:
		next.Project = nil
		next.Storyboards = map[string]*api.StoryboardDocument{}
		next.Pending = map[string]bool{}
		next.Busy, next.BusyStep = false, ""
	case BusyChanged:
		next.Busy = a.Busy
		next.BusyStep = ""
		if a.Busy {
			next.BusyStep = a.Step
		}
	case LogCleared:
		next.Log = nil
	case LogAppended:
		next.Log = append(next.Log, LogLine{Scope: a.Scope, Event: a.Event, At: a.At})
	case StoryboardLoaded:
		if a.Document == nil {
			delete(next.Storyboards, a.Block)
		} else {
			next.Storyboards[a.Block] = a.Document
		}
		delete(next.Pending, a.Block)
	case StoryboardPending:
		if a.Pending {
			next.Pending[a.Block] = true
		} else {
			delete(next.Pending, a.Block)
		}
	case SceneReplaced:
		doc, err := editableDoc(next, a.Block, a.Index)
		if err != nil {
			return state, err
		}
		doc.Storyboard[a.Index] = a.Scene
		next.Storyboards[a.Block] = doc
	case PromptMerged:
		doc, err := editableDoc(next, a.Block, a.Index)
		if err != nil {
			return state, err
		}
		scene := doc.Storyboard[a.Index].Clone()
		if scene.Prompt == nil {
			scene.Prompt = &api.Prompt{}
		}
		scene.Prompt.PromptText = a.PromptText
		if a.SFX != "" {
			scene.Prompt.SFX = a.SFX
		}
		doc.Storyboard[a.Index] = scene
		next.Storyboards[a.Block] = doc
	case LocationPromptSet:
		for folder, doc := range next.Storyboards {
			if doc == nil || !usesLocation(doc, a.LocationID) {
				continue
			}
			copied := copyDoc(doc)
			for i := range copied.Storyboard {
				scene := &copied.Storyboard[i]
				if scene.Prompt == nil {
					continue
				}
				var changed bool
				prompt := scene.Prompt.Clone()
				for j := range prompt.Locations {
					if prompt.Locations[j].ID == a.LocationID {
						prompt.Locations[j].Prompt = a.Prompt
						if a.Image != "" {
							prompt.Locations[j].Image = a.Image
						}
						changed = true
					}
				}
				if changed {
					*scene = scene.Clone()
					scene.Prompt = &prompt
				}
			}
			next.Storyboards[folder] = copied
		}
	case ElementUpdated:
		if next.Project == nil {
			return state, fmt.Errorf("element updated: no project loaded")
		}
		project := *next.Project
		elements := append([]api.Element(nil), project.Elements...)
		replaced := false
		for i := range elements {
			if elements[i].ElementID == a.Element.ElementID {
				elements[i] = a.Element
				replaced = true
			}
		}
		if !replaced {
			elements = append(elements, a.Element)
		}
		project.Elements = elements
		next.Project = &project
	case AudioGenerated:
		if next.Project == nil {
			return state, fmt.Errorf("audio generated: no project loaded")
		}
		project := *next.Project
		manifest := make(api.AudioManifest, len(project.AudioManifest)+1)
		for k, v := range project.AudioManifest {
			manifest[k] = v
		}
		manifest[a.SegmentID] = a.Segment
		project.AudioManifest = manifest
		next.Project = &project
	case SettingsLoaded:
		next.Settings = a.Settings
	default:
		return state, fmt.Errorf("unknown action %T", action)
	}
	return next, nil
}

func editableDoc(state State, folder string, index int) (*api.StoryboardDocument, error) {
	doc := state.Storyboards[folder]
	if doc == nil {
		return nil, fmt.Errorf("block %s is not loaded", folder)
	}
	if index < 0 || index >= len(doc.Storyboard) {
		return nil, fmt.Errorf("scene index %d out of range for %s", index, folder)
	}
	return copyDoc(doc), nil
}

func copyDoc(doc *api.StoryboardDocument) *api.StoryboardDocument {
	out := *doc
	out.Storyboard = append([]api.Scene(nil), doc.Storyboard...)
	return &out
}

func usesLocation(doc *api.StoryboardDocument, id string) bool {
	for _, scene := range doc.Storyboard {
		if scene.Prompt == nil {
			continue
		}
		for _, loc := range scene.Prompt.Locations {
			if loc.ID == id {
				return true
			}
		}
	}
	return false
}
