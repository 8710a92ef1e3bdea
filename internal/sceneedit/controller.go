package sceneedit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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
	After     func(time.Duration) <-chan time.Time
}

// Controller runs the scene-level edits of the storyboard grid. Every block
// has its own stream; a block that is already generating rejects new jobs.
type Controller struct {
	client         *backend.Client
	state          *appstate.Store
	ws             *workspace.Store
	streams        *progress.Registry
	logger         *slog.Logger
	confirm        storyboard.Confirm
	after          func(time.Duration) <-chan time.Time
	reconnectDelay time.Duration
	pollRetry      time.Duration
	settings       storyboard.Settings
}

// New validates deps and returns a controller.
func New(deps Deps) (*Controller, error) {
	if deps.Client == nil {
		return nil, errors.New("sceneedit: backend client is required")
	}
	if deps.State == nil {
		return nil, errors.New("sceneedit: state store is required")
	}
	c := &Controller{
		client:         deps.Client,
		state:          deps.State,
		ws:             deps.Workspace,
		streams:        deps.Streams,
		logger:         logging.NewComponentLogger(deps.Logger, "sceneedit"),
		confirm:        deps.Confirm,
		after:          deps.After,
		reconnectDelay: progress.DefaultReconnectDelay,
		pollRetry:      progress.DefaultPollRetry,
		settings:       storyboard.DefaultSettings(),
	}
	if c.streams == nil {
		c.streams = progress.NewRegistry(progress.NewHTTPConnector(deps.Client.ProgressURL))
	}
	if deps.Config != nil {
		c.reconnectDelay = deps.Config.ReconnectDelay()
		c.pollRetry = deps.Config.PollRetry()
		c.settings = storyboard.SettingsFromConfig(deps.Config)
	}
	return c, nil
}

// Job is one block generation: the stream, then the reload of the block.
type Job struct {
	ID    string
	Block block.Ref

	done chan struct{}
	doc  *api.StoryboardDocument
	err  error
}

func newJob(ref block.Ref) *Job {
	return &Job{ID: uuid.NewString(), Block: ref, done: make(chan struct{})}
}

// Done is closed after the block was reloaded or the job failed.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finished and returns the reloaded storyboard.
func (j *Job) Wait(ctx context.Context) (*api.StoryboardDocument, error) {
	select {
	case <-j.done:
		return j.doc, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *Job) finish(doc *api.StoryboardDocument, err error) {
	j.doc, j.err = doc, err
	close(j.done)
}

// runBlock claims the block, opens a retry-tolerant stream, posts the
// trigger and reloads the block once the stream finishes. A block that has
// not been written yet is polled until it appears.
func (c *Controller) runBlock(ctx context.Context, ref block.Ref, op, startLine string, post func(ctx context.Context, projectID string) error) (*Job, error) {
	projectID, err := c.requireProject(op)
	if err != nil {
		return nil, err
	}
	folder := ref.Folder()
	if !c.state.TryPending(folder) {
		logging.WarnWithContext(c.logger, "block already generating", "block_busy",
			logging.String(logging.FieldBlock, folder),
			logging.String(logging.FieldErrorHint, "wait for the block to reload"),
		)
		return nil, backend.Wrap(backend.ErrBusy, op, folder+" is already generating", nil)
	}

	job := newJob(ref)
	ctx = logging.WithRequestID(logging.WithBlock(logging.WithProjectID(ctx, projectID), folder), job.ID)
	logger := logging.WithContext(ctx, c.logger)
	emit := func(evt api.ProgressEvent) { c.appendLog(ctx, projectID, folder, evt) }

	emit(api.ProgressEvent{Message: startLine, Type: api.EventInfo})
	logger.Info("block job started", logging.String("op", op))

	handle := c.streams.Open(ctx, progress.BlockKey(projectID, folder), projectID, progress.Options{
		Policy:         progress.RetryTolerant,
		OnEvent:        emit,
		ReconnectDelay: c.reconnectDelay,
		Logger:         c.logger,
		After:          c.after,
	})

	jobCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		<-handle.Done()
		outcome := handle.Outcome()
		if outcome == progress.OutcomeCancelled {
			_ = c.state.Dispatch(appstate.StoryboardPending{Block: folder, Pending: false})
			job.finish(nil, backend.Wrap(backend.ErrCancelled, op, folder, nil))
			return
		}
		load := func(ctx context.Context) (*api.StoryboardDocument, error) {
			return c.client.GetStoryboard(ctx, projectID, ref)
		}
		var (
			doc *api.StoryboardDocument
			err error
		)
		if outcome == progress.OutcomeComplete {
			doc, err = progress.LoadCompleted(jobCtx, load, progress.PollOptions{
				Retry:   c.pollRetry,
				OnEvent: emit,
				After:   c.after,
			})
		} else {
			doc, err = load(jobCtx)
		}
		if err != nil {
			_ = c.state.Dispatch(appstate.StoryboardPending{Block: folder, Pending: false})
			if jobCtx.Err() != nil {
				job.finish(nil, backend.Wrap(backend.ErrCancelled, op, folder, jobCtx.Err()))
				return
			}
			if !errors.Is(err, backend.ErrNotGenerated) {
				emit(api.ProgressEvent{Message: "❌ Failed to load storyboard: " + backend.ApplicationMessage(err), Type: api.EventError})
			}
			logger.Warn("block reload failed", logging.Error(err))
			job.finish(nil, err)
			return
		}
		_ = c.state.Dispatch(appstate.StoryboardLoaded{Block: folder, Document: doc})
		emit(api.ProgressEvent{Message: fmt.Sprintf("✅ Loaded %d scenes!", len(doc.Storyboard)), Type: api.EventSuccess})
		logger.Info("block job finished",
			logging.String("outcome", outcome.String()),
			logging.Int("scenes", len(doc.Storyboard)),
		)
		job.finish(doc, nil)
	}()

	if err := post(ctx, projectID); err != nil {
		emit(api.ProgressEvent{Message: failureLine(err), Type: api.EventError})
		handle.Close()
		cancel()
		<-job.done
		return nil, err
	}
	return job, nil
}

func failureLine(err error) string {
	if backend.IsTransport(err) {
		return "❌ Network error: " + err.Error()
	}
	return "❌ Error: " + backend.ApplicationMessage(err)
}

func (c *Controller) appendLog(ctx context.Context, projectID, scope string, evt api.ProgressEvent) {
	_ = c.state.Dispatch(appstate.LogAppended{Scope: scope, Event: evt})
	if c.ws == nil {
		return
	}
	if err := c.ws.AppendProgress(context.WithoutCancel(ctx), projectID, scope, evt); err != nil {
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

// loadedScene returns a copy of a scene from a block already in state.
func (c *Controller) loadedScene(op string, ref block.Ref, index int) (*api.StoryboardDocument, api.Scene, error) {
	doc := c.state.Snapshot().Storyboards[ref.Folder()]
	if doc == nil {
		return nil, api.Scene{}, backend.Wrap(backend.ErrValidation, op, ref.Folder()+" is not loaded", nil)
	}
	if index < 0 || index >= len(doc.Storyboard) {
		return nil, api.Scene{}, backend.Wrap(backend.ErrValidation, op, fmt.Sprintf("scene index %d out of range (have %d scenes)", index, len(doc.Storyboard)), nil)
	}
	return doc, doc.Storyboard[index].Clone(), nil
}

// LoadBlock fetches one block into state. A block that has not been
// generated yet yields (nil, nil).
func (c *Controller) LoadBlock(ctx context.Context, ref block.Ref) (*api.StoryboardDocument, error) {
	projectID, err := c.requireProject("get storyboard")
	if err != nil {
		return nil, err
	}
	doc, err := c.client.GetStoryboard(ctx, projectID, ref)
	if errors.Is(err, backend.ErrNotGenerated) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := c.state.Dispatch(appstate.StoryboardLoaded{Block: ref.Folder(), Document: doc}); err != nil {
		return nil, err
	}
	return doc, nil
}
