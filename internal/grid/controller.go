package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/backend"
	"cutroom/internal/block"
	"cutroom/internal/config"
	"cutroom/internal/logging"
	"cutroom/internal/sceneedit"
	"cutroom/internal/storyboard"
	"cutroom/internal/viewmodel"
)

// Deps wires a Controller.
type Deps struct {
	Client  *backend.Client
	State   *appstate.Store
	Scenes  *sceneedit.Controller
	Config  *config.Config
	Logger  *slog.Logger
	Confirm storyboard.Confirm
}

// Controller drives the storyboard grid: loading every block and the
// structural scene edits that write a block back in one piece.
type Controller struct {
	client   *backend.Client
	state    *appstate.Store
	scenes   *sceneedit.Controller
	logger   *slog.Logger
	confirm  storyboard.Confirm
	settings storyboard.Settings
}

// New validates deps and returns a controller.
func New(deps Deps) (*Controller, error) {
	if deps.Client == nil {
		return nil, errors.New("grid: backend client is required")
	}
	if deps.State == nil {
		return nil, errors.New("grid: state store is required")
	}
	if deps.Scenes == nil {
		return nil, errors.New("grid: scene controller is required")
	}
	return &Controller{
		client:   deps.Client,
		state:    deps.State,
		scenes:   deps.Scenes,
		logger:   logging.NewComponentLogger(deps.Logger, "grid"),
		confirm:  deps.Confirm,
		settings: storyboard.SettingsFromConfig(deps.Config),
	}, nil
}

// LoadAll fetches every block of the episode into state. Blocks that were
// never generated stay empty; other failures are collected and the rest of
// the blocks still load.
func (c *Controller) LoadAll(ctx context.Context) (int, error) {
	snap := c.state.Snapshot()
	if snap.Project == nil {
		return 0, backend.Wrap(backend.ErrValidation, "load storyboard grid", "no project loaded", nil)
	}
	chapters := 0
	if snap.Project.Narration != nil {
		chapters = len(snap.Project.Narration.Phases)
	}
	loaded := 0
	var errs []error
	for _, ref := range block.Episode(chapters) {
		doc, err := c.scenes.LoadBlock(ctx, ref)
		if err != nil {
			c.logger.Warn("block load failed",
				logging.String(logging.FieldBlock, ref.Folder()),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", ref.Folder(), err))
			continue
		}
		if doc != nil {
			loaded++
		}
	}
	c.logger.Debug("storyboard grid loaded", logging.Int("blocks", loaded))
	return loaded, errors.Join(errs...)
}

// InsertBridge adds a bridge scene after the scene at index and saves the
// block. It returns the new scene's index.
func (c *Controller) InsertBridge(ctx context.Context, ref block.Ref, after int) (int, error) {
	var at int
	err := c.edit(ctx, "insert bridge", ref, func(m *storyboard.Model) error {
		var err error
		at, err = m.InsertBridge(after)
		return err
	})
	return at, err
}

// DeleteScene removes a scene after confirmation and saves the block.
func (c *Controller) DeleteScene(ctx context.Context, ref block.Ref, index int) error {
	return c.edit(ctx, "delete scene", ref, func(m *storyboard.Model) error {
		return m.DeleteScene(index, c.confirm)
	})
}

// edit applies fn to a copy of the loaded block, saves it and publishes the
// result. State is untouched when either step fails.
func (c *Controller) edit(ctx context.Context, op string, ref block.Ref, fn func(*storyboard.Model) error) error {
	snap := c.state.Snapshot()
	projectID := snap.ProjectID()
	if projectID == "" {
		return backend.Wrap(backend.ErrValidation, op, "no project loaded", nil)
	}
	folder := ref.Folder()
	doc := snap.Storyboards[folder]
	if doc == nil {
		return backend.Wrap(backend.ErrValidation, op, folder+" is not loaded", nil)
	}
	if snap.Pending[folder] {
		return backend.Wrap(backend.ErrBusy, op, folder+" is already generating", nil)
	}
	working := *doc
	working.Storyboard = make([]api.Scene, len(doc.Storyboard))
	for i, scene := range doc.Storyboard {
		working.Storyboard[i] = scene.Clone()
	}
	model := storyboard.New(projectID, ref, &working, c.settings)
	if err := fn(model); err != nil {
		return err
	}
	if _, err := model.Save(ctx, c.client); err != nil {
		return err
	}
	if err := c.state.Dispatch(appstate.StoryboardLoaded{Block: folder, Document: model.Document()}); err != nil {
		return err
	}
	c.logger.Info("block saved",
		logging.String(logging.FieldBlock, folder),
		logging.String("op", op),
		logging.Int("scenes", model.Len()),
	)
	return nil
}

// Bindings wires every grid action: the scene editor's plus the structural
// edits handled here.
func (c *Controller) Bindings(in sceneedit.Inputs) viewmodel.Bindings {
	bindings := c.scenes.Bindings(in)
	bindings[viewmodel.ActInsertBridge] = func(ctx context.Context, a viewmodel.Action) error {
		_, err := c.InsertBridge(ctx, a.Block, a.Scene)
		return err
	}
	bindings[viewmodel.ActDeleteScene] = func(ctx context.Context, a viewmodel.Action) error {
		return c.DeleteScene(ctx, a.Block, a.Scene)
	}
	return bindings
}
