package projectview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/backend"
	"cutroom/internal/block"
	"cutroom/internal/config"
	"cutroom/internal/logging"
	"cutroom/internal/progress"
	"cutroom/internal/storyboard"
	"cutroom/internal/workspace"
)

// Deps wires a Controller.
type Deps struct {
	Client    *backend.Client
	State     *appstate.Store
	Workspace *workspace.Store
	Streams   *progress.Registry
	Config    *config.Config
	Logger    *slog.Logger
	Confirm   storyboard.Confirm
	// After replaces time.After for stream delays.
	After func(time.Duration) <-chan time.Time
}

// Controller drives the project view: loading, section gating and every
// project-level generation trigger.
type Controller struct {
	client       *backend.Client
	state        *appstate.Store
	ws           *workspace.Store
	streams      *progress.Registry
	logger       *slog.Logger
	confirm      storyboard.Confirm
	after        func(time.Duration) <-chan time.Time
	refreshDelay time.Duration
	voice        config.Voice
	settings     storyboard.Settings
}

// New validates deps and returns a controller.
func New(deps Deps) (*Controller, error) {
	if deps.Client == nil {
		return nil, errors.New("projectview: backend client is required")
	}
	if deps.State == nil {
		return nil, errors.New("projectview: state store is required")
	}
	c := &Controller{
		client:       deps.Client,
		state:        deps.State,
		ws:           deps.Workspace,
		streams:      deps.Streams,
		logger:       logging.NewComponentLogger(deps.Logger, "projectview"),
		confirm:      deps.Confirm,
		after:        deps.After,
		refreshDelay: progress.DefaultRefreshDelay,
		settings:     storyboard.DefaultSettings(),
	}
	if c.streams == nil {
		c.streams = progress.NewRegistry(progress.NewHTTPConnector(deps.Client.ProgressURL))
	}
	if deps.Config != nil {
		c.refreshDelay = deps.Config.RefreshDelay()
		c.voice = deps.Config.Voice
		c.settings = storyboard.SettingsFromConfig(deps.Config)
	}
	return c, nil
}

// State returns the shared state container.
func (c *Controller) State() *appstate.Store { return c.state }

// Run is one in-flight generation.
type Run struct {
	ID   string
	Step string

	done        chan struct{}
	refreshed   chan struct{}
	refreshOnce sync.Once
	outcome     progress.Outcome
}

func newRun(step string) *Run {
	return &Run{ID: uuid.NewString(), Step: step, done: make(chan struct{}), refreshed: make(chan struct{})}
}

// Done is closed once the stream finished and the busy state was released.
func (r *Run) Done() <-chan struct{} { return r.done }

// Outcome reports how the stream finished. It blocks until Done.
func (r *Run) Outcome() progress.Outcome {
	<-r.done
	return r.outcome
}

// Wait blocks until the run finished and, after a complete event, until the
// project reload ran.
func (r *Run) Wait(ctx context.Context) (progress.Outcome, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return progress.OutcomeCancelled, ctx.Err()
	}
	select {
	case <-r.refreshed:
	case <-ctx.Done():
		return r.outcome, ctx.Err()
	}
	return r.outcome, nil
}

func (r *Run) markRefreshed() {
	r.refreshOnce.Do(func() { close(r.refreshed) })
}

// trigger describes one generation action.
type trigger struct {
	step  string
	start string
	post  func(ctx context.Context, projectID string) error
	// finish runs after the stream ends on its own, once busy is released.
	finish func(ctx context.Context, projectID string, outcome progress.Outcome)
}

// start runs the generation contract: busy check, lock, log reset, stream,
// then POST. A failed POST closes the stream and releases everything before
// returning.
func (c *Controller) start(ctx context.Context, t trigger) (*Run, error) {
	projectID := c.state.Snapshot().ProjectID()
	if projectID == "" {
		return nil, backend.Wrap(backend.ErrValidation, t.step, "no project loaded", nil)
	}
	if !c.state.TryBusy(t.step) {
		logging.WarnWithContext(c.logger, "generation already in progress", "generation_busy",
			logging.String("step", t.step),
			logging.String(logging.FieldErrorHint, "wait for the running step to finish"),
		)
		return nil, backend.Wrap(backend.ErrBusy, t.step, "Generation already in progress", nil)
	}
	var lock *workspace.ProjectLock
	if c.ws != nil {
		var err error
		lock, err = c.ws.LockProject(projectID)
		if err != nil {
			_ = c.state.Dispatch(appstate.BusyChanged{Busy: false})
			logging.WarnWithContext(c.logger, "project locked by another process", "generation_locked",
				logging.String("step", t.step),
				logging.Error(err),
			)
			return nil, err
		}
	}

	run := newRun(t.step)
	ctx = logging.WithRequestID(logging.WithProjectID(ctx, projectID), run.ID)
	logger := logging.WithContext(ctx, c.logger)

	c.clearLog(ctx, projectID)
	c.appendLog(ctx, projectID, api.ProgressEvent{Message: t.start, Type: api.EventInfo})
	logger.Info("generation started", logging.String("step", t.step))

	handle := c.streams.Open(ctx, progress.ProjectKey(projectID), projectID, progress.Options{
		Policy:  progress.FailFast,
		OnEvent: func(evt api.ProgressEvent) { c.appendLog(ctx, projectID, evt) },
		Refresh: func(ctx context.Context) {
			if _, err := c.Reload(ctx); err != nil {
				logger.Warn("project reload failed", logging.Error(err))
			}
			run.markRefreshed()
		},
		RefreshDelay: c.refreshDelay,
		Logger:       c.logger,
		After:        c.after,
	})

	go func() {
		<-handle.Done()
		run.outcome = handle.Outcome()
		if err := lock.Release(); err != nil {
			logger.Warn("release project lock", logging.Error(err))
		}
		_ = c.state.Dispatch(appstate.BusyChanged{Busy: false})
		if t.finish != nil && run.outcome != progress.OutcomeCancelled {
			t.finish(ctx, projectID, run.outcome)
		}
		if run.outcome != progress.OutcomeComplete {
			run.markRefreshed()
		}
		logger.Info("generation finished",
			logging.String("step", t.step),
			logging.String("outcome", run.outcome.String()),
		)
		close(run.done)
	}()

	if err := t.post(ctx, projectID); err != nil {
		c.appendLog(ctx, projectID, api.ProgressEvent{Message: failureLine(err), Type: api.EventError})
		handle.Close()
		<-run.done
		return nil, err
	}
	return run, nil
}

func failureLine(err error) string {
	if backend.IsTransport(err) {
		return "❌ Network error: " + err.Error()
	}
	return "❌ Error: " + backend.ApplicationMessage(err)
}

func (c *Controller) clearLog(ctx context.Context, projectID string) {
	_ = c.state.Dispatch(appstate.LogCleared{})
	if c.ws == nil {
		return
	}
	if err := c.ws.ClearProgress(context.WithoutCancel(ctx), projectID, ""); err != nil {
		c.logger.Debug("clear progress log", logging.Error(err))
	}
}

// appendLog records a progress line in the state log and the workspace.
func (c *Controller) appendLog(ctx context.Context, projectID string, evt api.ProgressEvent) {
	_ = c.state.Dispatch(appstate.LogAppended{Event: evt})
	if c.ws == nil {
		return
	}
	if err := c.ws.AppendProgress(context.WithoutCancel(ctx), projectID, "", evt); err != nil {
		c.logger.Debug("persist progress line", logging.Error(err))
	}
}

func (c *Controller) requireProject(op string) (string, error) {
	id := c.state.Snapshot().ProjectID()
	if id == "" {
		return "", backend.Wrap(backend.ErrValidation, op, "no project loaded", nil)
	}
	return id, nil
}

// GenerateStep triggers a whole-project generation step.
func (c *Controller) GenerateStep(ctx context.Context, step backend.Generation) (*Run, error) {
	if _, err := backend.ParseGeneration(string(step)); err != nil {
		return nil, err
	}
	t := trigger{
		step:  string(step),
		start: fmt.Sprintf("🚀 Starting %s generation...", step),
		post: func(ctx context.Context, projectID string) error {
			_, err := c.client.TriggerGeneration(ctx, projectID, step)
			return err
		},
	}
	if step == backend.GenerateBreakdown {
		t.start = "🧩 Starting script breakdown..."
		t.finish = func(ctx context.Context, _ string, _ progress.Outcome) {
			if _, err := c.Reload(ctx); err != nil {
				c.logger.Warn("project reload failed", logging.Error(err))
			}
		}
	}
	return c.start(ctx, t)
}

// AnalyzeChapter triggers storyboard analysis for a chapter and loads the
// result into state when the stream finishes.
func (c *Controller) AnalyzeChapter(ctx context.Context, chapter int) (*Run, error) {
	if chapter < 0 {
		return nil, backend.Wrap(backend.ErrValidation, "analyze chapter", fmt.Sprintf("Chapter index %d out of range", chapter), nil)
	}
	ref := block.Chapter(chapter)
	return c.start(ctx, trigger{
		step:  "analyze:" + ref.Folder(),
		start: fmt.Sprintf("🔍 Analyzing Chapter %d...", chapter+1),
		post: func(ctx context.Context, projectID string) error {
			_, err := c.client.Analyze(ctx, projectID, ref)
			return err
		},
		finish: func(ctx context.Context, projectID string, _ progress.Outcome) {
			if _, err := c.LoadChapterStoryboard(ctx, chapter); err != nil {
				c.appendLog(ctx, projectID, api.ProgressEvent{Message: "❌ Failed to load storyboard: " + backend.ApplicationMessage(err), Type: api.EventError})
			}
		},
	})
}

// GenerateProduction triggers the production pipeline for a chapter.
func (c *Controller) GenerateProduction(ctx context.Context, chapter int) (*Run, error) {
	if chapter < 0 {
		return nil, backend.Wrap(backend.ErrValidation, "generate chapter production", fmt.Sprintf("Chapter index %d out of range", chapter), nil)
	}
	return c.start(ctx, trigger{
		step:  "production:" + block.Chapter(chapter).Folder(),
		start: fmt.Sprintf("🚀 Generating production for Chapter %d...", chapter+1),
		post: func(ctx context.Context, projectID string) error {
			_, err := c.client.GenerateChapterProduction(ctx, projectID, chapter)
			return err
		},
		finish: func(ctx context.Context, projectID string, _ progress.Outcome) {
			if _, err := c.client.GetProductionPrompts(ctx, projectID, chapter); err != nil {
				c.appendLog(ctx, projectID, api.ProgressEvent{Message: "❌ Failed to load results: " + backend.ApplicationMessage(err), Type: api.EventError})
			}
		},
	})
}
