package viewmodel

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cutroom/internal/block"
)

// ActionKind names an operation a node can trigger.
type ActionKind int

const (
	ActGenerate ActionKind = iota
	ActAnalyze
	ActGenerateProduction
	ActLaunchStoryboard
	ActGenerateAudio
	ActRegenerateElement
	ActEditElement
	ActUploadElement
	ActRegenerateFrame
	ActUploadFrame
	ActReuploadScript
	ActDeleteProject
	ActOpenProject
	ActInsertBridge
	ActDeleteScene
	ActEditScene
	ActInsertScene
	ActEditPrompt
	ActEditLocationImage
	ActDeletePrompt
	ActToggleDone
	ActRegenerateStoryboard
	ActGeneratePrompts
	ActSaveStoryboard
)

var actionNames = map[ActionKind]string{
	ActGenerate:             "generate",
	ActAnalyze:              "analyze",
	ActGenerateProduction:   "generate-production",
	ActLaunchStoryboard:     "launch-storyboard",
	ActGenerateAudio:        "generate-audio",
	ActRegenerateElement:    "regenerate-element",
	ActEditElement:          "edit-element",
	ActUploadElement:        "upload-element",
	ActRegenerateFrame:      "regenerate-frame",
	ActUploadFrame:          "upload-frame",
	ActReuploadScript:       "reupload-script",
	ActDeleteProject:        "delete-project",
	ActOpenProject:          "open-project",
	ActInsertBridge:         "insert-bridge",
	ActDeleteScene:          "delete-scene",
	ActEditScene:            "edit-scene",
	ActInsertScene:          "insert-scene",
	ActEditPrompt:           "edit-prompt",
	ActEditLocationImage:    "edit-location-image",
	ActDeletePrompt:         "delete-prompt",
	ActToggleDone:           "toggle-done",
	ActRegenerateStoryboard: "regenerate-storyboard",
	ActGeneratePrompts:      "generate-prompts",
	ActSaveStoryboard:       "save-storyboard",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is a typed reference to an operation and its target. Identifiers are
// carried as values, never interpolated into strings.
type Action struct {
	Kind      ActionKind
	ProjectID string
	Step      string
	Block     block.Ref
	HasBlock  bool
	Scene     int
	Element   string
	Segment   string
}

// ForBlock returns a copy of a targeting ref.
func (a Action) ForBlock(ref block.Ref) Action {
	a.Block = ref
	a.HasBlock = true
	return a
}

func (a Action) String() string {
	parts := []string{a.Kind.String()}
	if a.ProjectID != "" {
		parts = append(parts, "project="+a.ProjectID)
	}
	if a.Step != "" {
		parts = append(parts, "step="+a.Step)
	}
	if a.HasBlock {
		parts = append(parts, "block="+a.Block.Folder())
	}
	if a.Element != "" {
		parts = append(parts, "element="+a.Element)
	}
	if a.Segment != "" {
		parts = append(parts, "segment="+a.Segment)
	}
	if a.Kind >= ActRegenerateFrame && a.Kind <= ActUploadFrame || a.Kind >= ActInsertBridge {
		parts = append(parts, fmt.Sprintf("scene=%d", a.Scene))
	}
	return strings.Join(parts, " ")
}

// Handler executes an action.
type Handler func(ctx context.Context, action Action) error

// Bindings maps action kinds to handlers.
type Bindings map[ActionKind]Handler

// Bound is a view tree with handlers attached.
type Bound struct {
	root     *Node
	handlers map[string]func(context.Context) error
}

// Bind walks the tree and attaches a handler closure to every node carrying
// an action. Every action kind in the tree must have a binding.
func Bind(root *Node, bindings Bindings) (*Bound, error) {
	bound := &Bound{root: root, handlers: map[string]func(context.Context) error{}}
	missing := map[string]struct{}{}
	Walk(root, func(n *Node) bool {
		if n.Action == nil {
			return true
		}
		handler, ok := bindings[n.Action.Kind]
		if !ok {
			missing[n.Action.Kind.String()] = struct{}{}
			return true
		}
		action := *n.Action
		bound.handlers[n.ID] = func(ctx context.Context) error {
			return handler(ctx, action)
		}
		return true
	})
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("viewmodel: no handler for %s", strings.Join(names, ", "))
	}
	return bound, nil
}

// Root returns the bound tree.
func (b *Bound) Root() *Node { return b.root }

// Invoke runs the handler of the node with id. Hidden or disabled nodes are
// rejected the way an invisible button cannot be clicked.
func (b *Bound) Invoke(ctx context.Context, id string) error {
	node := Find(b.root, id)
	if node == nil {
		return fmt.Errorf("viewmodel: no node %q", id)
	}
	if node.Hidden {
		return fmt.Errorf("viewmodel: %q is not visible", id)
	}
	if node.Disabled {
		return fmt.Errorf("viewmodel: %q is disabled", id)
	}
	handler, ok := b.handlers[id]
	if !ok {
		return fmt.Errorf("viewmodel: %q has no action", id)
	}
	return handler(ctx)
}

// Actions lists the ids of every invocable node in tree order.
func (b *Bound) Actions() []string {
	var ids []string
	Walk(b.root, func(n *Node) bool {
		if n.Hidden {
			return false
		}
		if _, ok := b.handlers[n.ID]; ok && !n.Disabled {
			ids = append(ids, n.ID)
		}
		return true
	})
	return ids
}
