package projectview

import (
	"context"
	"errors"
	"io"

	"cutroom/internal/backend"
	"cutroom/internal/viewmodel"
)

// Inputs supplies the values a surface collects from the user before an
// action runs.
type Inputs struct {
	// Feedback asks for free text such as element edit instructions.
	Feedback func(prompt string) (string, error)
	// File opens a local file chosen by the user.
	File func(prompt string) (io.ReadCloser, string, error)
	// LaunchStoryboard switches to the storyboard grid.
	LaunchStoryboard func(ctx context.Context, projectID string) error
	// Started observes generation runs.
	Started func(*Run)
}

var errNoInput = errors.New("projectview: input not available on this surface")

// Bindings wires the project view's action kinds to controller operations.
func (c *Controller) Bindings(in Inputs) viewmodel.Bindings {
	started := func(run *Run, err error) error {
		if err == nil && in.Started != nil {
			in.Started(run)
		}
		return err
	}
	return viewmodel.Bindings{
		viewmodel.ActGenerate: func(ctx context.Context, a viewmodel.Action) error {
			return started(c.GenerateStep(ctx, backend.Generation(a.Step)))
		},
		viewmodel.ActAnalyze: func(ctx context.Context, a viewmodel.Action) error {
			return started(c.AnalyzeChapter(ctx, a.Block.Index()))
		},
		viewmodel.ActGenerateProduction: func(ctx context.Context, a viewmodel.Action) error {
			return started(c.GenerateProduction(ctx, a.Block.Index()))
		},
		viewmodel.ActGenerateAudio: func(ctx context.Context, a viewmodel.Action) error {
			if a.Segment == "" {
				return c.GenerateAllAudio(ctx)
			}
			_, err := c.GenerateAudio(ctx, a.Segment)
			return err
		},
		viewmodel.ActRegenerateElement: func(ctx context.Context, a viewmodel.Action) error {
			_, err := c.RegenerateElement(ctx, a.Element)
			return err
		},
		viewmodel.ActEditElement: func(ctx context.Context, a viewmodel.Action) error {
			if in.Feedback == nil {
				return errNoInput
			}
			feedback, err := in.Feedback("Describe the change for " + a.Element)
			if err != nil {
				return err
			}
			_, err = c.EditElement(ctx, a.Element, feedback)
			return err
		},
		viewmodel.ActUploadElement: func(ctx context.Context, a viewmodel.Action) error {
			if in.File == nil {
				return errNoInput
			}
			file, name, err := in.File("Image for " + a.Element)
			if err != nil {
				return err
			}
			defer file.Close()
			_, err = c.UploadElement(ctx, a.Element, file, name)
			return err
		},
		viewmodel.ActReuploadScript: func(ctx context.Context, a viewmodel.Action) error {
			if in.File == nil {
				return errNoInput
			}
			file, name, err := in.File("Script file")
			if err != nil {
				return err
			}
			defer file.Close()
			_, err = c.ReuploadScript(ctx, file, name)
			return err
		},
		viewmodel.ActLaunchStoryboard: func(ctx context.Context, a viewmodel.Action) error {
			if in.LaunchStoryboard == nil {
				return errNoInput
			}
			return in.LaunchStoryboard(ctx, a.ProjectID)
		},
		viewmodel.ActDeleteProject: func(ctx context.Context, a viewmodel.Action) error {
			return c.Delete(ctx, a.ProjectID)
		},
		viewmodel.ActOpenProject: func(ctx context.Context, a viewmodel.Action) error {
			_, err := c.Open(ctx, a.ProjectID)
			return err
		},
	}
}
