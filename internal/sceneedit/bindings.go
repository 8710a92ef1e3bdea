package sceneedit

import (
	"context"
	"errors"
	"fmt"

	"cutroom/internal/api"
	"cutroom/internal/backend"
	"cutroom/internal/viewmodel"
)

// Inputs collects the modal values a surface asks the user for.
type Inputs struct {
	// Form edits a scene form prefilled with initial.
	Form func(title string, initial SceneForm) (SceneForm, error)
	// Feedback asks for free text.
	Feedback func(prompt string) (string, error)
	// Reference picks an optional guide image; "" means none.
	Reference func(options []ReferenceOption) (string, error)
	// Started observes block jobs.
	Started func(*Job)
}

var errNoInput = errors.New("sceneedit: input not available on this surface")

// Bindings wires the scene-level action kinds of the grid.
func (c *Controller) Bindings(in Inputs) viewmodel.Bindings {
	started := func(job *Job, err error) error {
		if err == nil && in.Started != nil {
			in.Started(job)
		}
		return err
	}
	feedback := func(prompt string) (string, error) {
		if in.Feedback == nil {
			return "", errNoInput
		}
		return in.Feedback(prompt)
	}
	return viewmodel.Bindings{
		viewmodel.ActAnalyze: func(ctx context.Context, a viewmodel.Action) error {
			return started(c.GenerateStoryboard(ctx, a.Block))
		},
		viewmodel.ActRegenerateStoryboard: func(ctx context.Context, a viewmodel.Action) error {
			return started(c.RegenerateStoryboard(ctx, a.Block))
		},
		viewmodel.ActGeneratePrompts: func(ctx context.Context, a viewmodel.Action) error {
			return started(c.GeneratePrompts(ctx, a.Block))
		},
		viewmodel.ActEditScene: func(ctx context.Context, a viewmodel.Action) error {
			if in.Form == nil {
				return errNoInput
			}
			_, scene, err := c.loadedScene("update scene", a.Block, a.Scene)
			if err != nil {
				return err
			}
			form, err := in.Form(fmt.Sprintf("Edit Scene %d", a.Scene+1), FormFromScene(scene))
			if err != nil {
				return err
			}
			return started(c.EditScene(ctx, a.Block, a.Scene, form))
		},
		viewmodel.ActInsertScene: func(ctx context.Context, a viewmodel.Action) error {
			if in.Form == nil {
				return errNoInput
			}
			form, err := in.Form(fmt.Sprintf("New scene at position %d", a.Scene+1), SceneForm{Type: api.SceneBridge, Duration: DefaultDuration})
			if err != nil {
				return err
			}
			return started(c.InsertScene(ctx, a.Block, a.Scene, form))
		},
		viewmodel.ActEditPrompt: func(ctx context.Context, a viewmodel.Action) error {
			text, err := feedback(fmt.Sprintf("How should the prompt for Scene %d change?", a.Scene+1))
			if err != nil {
				return err
			}
			_, err = c.EditPrompt(ctx, a.Block, a.Scene, text)
			return err
		},
		viewmodel.ActEditLocationImage: func(ctx context.Context, a viewmodel.Action) error {
			doc, scene, err := c.loadedScene("edit location image", a.Block, a.Scene)
			if err != nil {
				return err
			}
			location := -1
			if scene.Prompt != nil {
				for i, loc := range scene.Prompt.Locations {
					if loc.ID == a.Element {
						location = i
						break
					}
				}
			}
			if location < 0 {
				return backend.Wrap(backend.ErrValidation, "edit location image", "unknown location "+a.Element, nil)
			}
			text, err := feedback("How should " + LocationLabel(scene.Prompt.Locations, location) + " change?")
			if err != nil {
				return err
			}
			reference := ""
			if in.Reference != nil {
				if options := ReferenceOptions(doc, a.Scene); len(options) > 0 {
					if reference, err = in.Reference(options); err != nil {
						return err
					}
				}
			}
			_, err = c.EditLocationImage(ctx, a.Block, a.Scene, location, text, reference)
			return err
		},
		viewmodel.ActDeletePrompt: func(ctx context.Context, a viewmodel.Action) error {
			return started(c.DeletePrompt(ctx, a.Block, a.Scene))
		},
		viewmodel.ActToggleDone: func(ctx context.Context, a viewmodel.Action) error {
			_, err := c.ToggleDone(ctx, a.Block, a.Scene)
			return err
		},
	}
}
