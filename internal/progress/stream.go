package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"cutroom/internal/api"
	"cutroom/internal/logging"
)

// Policy decides what happens when the connection drops before a terminal
// event.
type Policy int

const (
	// FailFast reports the loss and finishes with OutcomeTransport.
	FailFast Policy = iota
	// RetryTolerant reconnects after ReconnectDelay until a terminal event
	// arrives or the context is cancelled.
	RetryTolerant
)

func (p Policy) String() string {
	if p == RetryTolerant {
		return "retry-tolerant"
	}
	return "fail-fast"
}

// Outcome is how a stream finished.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomeFailed
	OutcomeTransport
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeFailed:
		return "failed"
	case OutcomeTransport:
		return "transport"
	default:
		return "cancelled"
	}
}

const (
	DefaultRefreshDelay   = 500 * time.Millisecond
	DefaultReconnectDelay = 3 * time.Second

	connectionLostMessage        = "⚠️ Connection lost. Check server."
	connectionInterruptedMessage = "Connection interrupted. Reconnecting..."
)

// Connector opens the raw event stream for a project.
type Connector interface {
	Connect(ctx context.Context, projectID string) (io.ReadCloser, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, projectID string) (io.ReadCloser, error)

func (f ConnectorFunc) Connect(ctx context.Context, projectID string) (io.ReadCloser, error) {
	return f(ctx, projectID)
}

// HTTPConnector opens the backend's SSE endpoint.
type HTTPConnector struct {
	client *http.Client
	urlFor func(projectID string) string
}

// NewHTTPConnector builds a connector. The HTTP client has no timeout since
// a stream stays open for the whole generation; cancellation is by context.
func NewHTTPConnector(urlFor func(projectID string) string) *HTTPConnector {
	return &HTTPConnector{client: &http.Client{}, urlFor: urlFor}
}

func (c *HTTPConnector) Connect(ctx context.Context, projectID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.urlFor(projectID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("progress stream returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Options configures one stream.
type Options struct {
	Policy Policy
	// OnEvent receives every event in server order, plus synthesized
	// connection warnings.
	OnEvent func(api.ProgressEvent)
	// OnDone fires at most once when the stream finishes on its own. Close
	// does not invoke it.
	OnDone func(Outcome)
	// Refresh runs RefreshDelay after a complete event.
	Refresh        func(ctx context.Context)
	RefreshDelay   time.Duration
	ReconnectDelay time.Duration
	Logger         *slog.Logger
	// After replaces time.After for delays.
	After func(time.Duration) <-chan time.Time
}

// Handle is one live progress stream.
type Handle struct {
	projectID string
	opts      Options
	parent    context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger

	closed   atomic.Bool
	finished atomic.Bool
	done     chan struct{}
	outcome  Outcome
}

// Open starts streaming progress for projectID in a reader goroutine.
func Open(ctx context.Context, conn Connector, projectID string, opts Options) *Handle {
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.After == nil {
		opts.After = time.After
	}
	streamCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		projectID: projectID,
		opts:      opts,
		parent:    ctx,
		ctx:       streamCtx,
		cancel:    cancel,
		logger: logging.WithContext(logging.WithProjectID(ctx, projectID),
			logging.NewComponentLogger(opts.Logger, "progress")).With(logging.String("policy", opts.Policy.String())),
		done: make(chan struct{}),
	}
	go h.run(conn)
	return h
}

// Close stops the stream. It is idempotent and safe to call from callbacks.
func (h *Handle) Close() {
	h.finish(OutcomeCancelled)
}

// Done is closed once the stream has finished or been closed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Outcome reports how the stream finished. It is only meaningful after Done.
func (h *Handle) Outcome() Outcome {
	<-h.done
	return h.outcome
}

// Closed reports whether the stream has stopped delivering events.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

func (h *Handle) run(conn Connector) {
	for {
		terminal, err := h.readOnce(conn)
		if terminal || h.closed.Load() {
			return
		}
		if h.ctx.Err() != nil {
			h.finish(OutcomeCancelled)
			return
		}
		if h.opts.Policy == FailFast {
			h.logger.Warn("progress stream lost", logging.Error(err))
			h.deliver(api.ProgressEvent{Message: connectionLostMessage, Type: api.EventError})
			h.finish(OutcomeTransport)
			return
		}
		h.logger.Info("progress stream interrupted; reconnecting",
			logging.Duration("delay", h.opts.ReconnectDelay), logging.Error(err))
		h.deliver(api.ProgressEvent{Message: connectionInterruptedMessage, Type: api.EventInfo})
		select {
		case <-h.ctx.Done():
			h.finish(OutcomeCancelled)
			return
		case <-h.opts.After(h.opts.ReconnectDelay):
		}
	}
}

// readOnce consumes one connection. It reports whether a terminal event
// finished the stream.
func (h *Handle) readOnce(conn Connector) (bool, error) {
	body, err := conn.Connect(h.ctx, h.projectID)
	if err != nil {
		return false, err
	}
	defer body.Close()

	terminal := false
	err = Parse(body, func(evt api.ProgressEvent) bool {
		if h.closed.Load() {
			return false
		}
		h.deliver(evt)
		switch evt.Type {
		case api.EventComplete:
			terminal = true
			h.finish(OutcomeComplete)
			h.scheduleRefresh()
			return false
		case api.EventError:
			terminal = true
			h.finish(OutcomeFailed)
			return false
		}
		return true
	})
	if terminal {
		return true, nil
	}
	if err == nil {
		err = errors.New("stream ended before completion")
	}
	return false, err
}

func (h *Handle) deliver(evt api.ProgressEvent) {
	if h.closed.Load() || h.opts.OnEvent == nil {
		return
	}
	h.opts.OnEvent(evt)
}

func (h *Handle) finish(outcome Outcome) {
	if !h.finished.CompareAndSwap(false, true) {
		return
	}
	h.closed.Store(true)
	h.outcome = outcome
	h.cancel()
	if outcome != OutcomeCancelled && h.opts.OnDone != nil {
		h.opts.OnDone(outcome)
	}
	close(h.done)
}

func (h *Handle) scheduleRefresh() {
	if h.opts.Refresh == nil {
		return
	}
	go func() {
		select {
		case <-h.parent.Done():
		case <-h.opts.After(h.opts.RefreshDelay):
			h.opts.Refresh(h.parent)
		}
	}()
}
