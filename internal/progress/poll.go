package progress

import (
	"context"
	"time"

	"cutroom/internal/api"
)

// DefaultPollRetry is the wait between block reload attempts.
const DefaultPollRetry = 5 * time.Second

// PollOptions configures LoadCompleted.
type PollOptions struct {
	Retry   time.Duration
	OnEvent func(api.ProgressEvent)
	After   func(time.Duration) <-chan time.Time
}

// LoadCompleted calls load until it succeeds or ctx is cancelled. Every
// failure (not generated yet, transport) waits Retry before the next try.
func LoadCompleted[T any](ctx context.Context, load func(context.Context) (T, error), opts PollOptions) (T, error) {
	if opts.Retry <= 0 {
		opts.Retry = DefaultPollRetry
	}
	if opts.After == nil {
		opts.After = time.After
	}
	for {
		value, err := load(ctx)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil {
			var zero T
			return zero, ctx.Err()
		}
		if opts.OnEvent != nil {
			opts.OnEvent(api.ProgressEvent{
				Message: "⚠️ Storyboard not ready yet. Will retry in " + opts.Retry.String() + "...",
				Type:    api.EventInfo,
			})
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-opts.After(opts.Retry):
		}
	}
}
