package progress

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cutroom/internal/api"
)

type recorder struct {
	mu       sync.Mutex
	events   []api.ProgressEvent
	outcomes []Outcome
	done     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 4)}
}

func (r *recorder) onEvent(evt api.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) onDone(o Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder) snapshot() ([]api.ProgressEvent, []Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.ProgressEvent(nil), r.events...), append([]Outcome(nil), r.outcomes...)
}

func immediate(delays *[]time.Duration, mu *sync.Mutex) func(time.Duration) <-chan time.Time {
	return func(d time.Duration) <-chan time.Time {
		if delays != nil {
			mu.Lock()
			*delays = append(*delays, d)
			mu.Unlock()
		}
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
}

func bodies(payloads ...string) Connector {
	var calls atomic.Int32
	return ConnectorFunc(func(ctx context.Context, projectID string) (io.ReadCloser, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(payloads) {
			return nil, errors.New("no more payloads")
		}
		return io.NopCloser(strings.NewReader(payloads[n])), nil
	})
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestParseHandlesMultilineCommentsAndRawText(t *testing.T) {
	input := ": heartbeat\n\n" +
		"data: {\"message\":\"Parsing\",\n" +
		"data: \"type\":\"info\"}\n\n" +
		"data: plain text\n\n" +
		"data: {\"message\":\"odd\",\"type\":\"sparkle\"}\n\n" +
		"event: ignored\nid: 4\n\n"
	var got []api.ProgressEvent
	if err := Parse(strings.NewReader(input), func(evt api.ProgressEvent) bool {
		got = append(got, evt)
		return true
	}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(got), got)
	}
	if got[0].Message != "Parsing" || got[0].Type != api.EventInfo {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if got[1].Message != "plain text" || got[1].Type != api.EventInfo {
		t.Fatalf("raw text should become info, got %+v", got[1])
	}
	if got[2].Type != api.EventInfo {
		t.Fatalf("unknown type should map to info, got %+v", got[2])
	}
}

func TestCompleteFiresDoneOnceThenRefreshes(t *testing.T) {
	rec := newRecorder()
	refreshed := make(chan struct{}, 2)
	var delays []time.Duration
	var mu sync.Mutex
	conn := bodies("data: {\"message\":\"step\",\"type\":\"info\"}\n\n" +
		"data: {\"message\":\"done\",\"type\":\"complete\"}\n\n" +
		"data: {\"message\":\"late\",\"type\":\"info\"}\n\n")
	h := Open(context.Background(), conn, "p1", Options{
		OnEvent:      rec.onEvent,
		OnDone:       rec.onDone,
		Refresh:      func(context.Context) { refreshed <- struct{}{} },
		RefreshDelay: 250 * time.Millisecond,
		After:        immediate(&delays, &mu),
	})
	waitDone(t, h)
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not run")
	}
	h.Close()
	events, outcomes := rec.snapshot()
	if len(events) != 2 || events[1].Type != api.EventComplete {
		t.Fatalf("unexpected events %+v", events)
	}
	if len(outcomes) != 1 || outcomes[0] != OutcomeComplete {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(delays) != 1 || delays[0] != 250*time.Millisecond {
		t.Fatalf("unexpected refresh delays %v", delays)
	}
}

func TestErrorEventDoesNotRefresh(t *testing.T) {
	rec := newRecorder()
	var refreshed atomic.Bool
	h := Open(context.Background(), bodies("data: {\"message\":\"boom\",\"type\":\"error\"}\n\n"), "p1", Options{
		OnEvent: rec.onEvent,
		OnDone:  rec.onDone,
		Refresh: func(context.Context) { refreshed.Store(true) },
		After:   immediate(nil, nil),
	})
	waitDone(t, h)
	if h.Outcome() != OutcomeFailed {
		t.Fatalf("unexpected outcome %v", h.Outcome())
	}
	time.Sleep(20 * time.Millisecond)
	if refreshed.Load() {
		t.Fatal("error must not refresh")
	}
}

func TestFailFastReportsConnectionLoss(t *testing.T) {
	rec := newRecorder()
	h := Open(context.Background(), bodies("data: {\"message\":\"working\",\"type\":\"info\"}\n\n"), "p1", Options{
		Policy:  FailFast,
		OnEvent: rec.onEvent,
		OnDone:  rec.onDone,
		After:   immediate(nil, nil),
	})
	waitDone(t, h)
	events, outcomes := rec.snapshot()
	if len(outcomes) != 1 || outcomes[0] != OutcomeTransport {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
	last := events[len(events)-1]
	if !strings.Contains(last.Message, "Connection lost. Check server.") {
		t.Fatalf("expected connection lost line, got %+v", last)
	}
}

func TestRetryTolerantReconnectsUntilTerminal(t *testing.T) {
	rec := newRecorder()
	var delays []time.Duration
	var mu sync.Mutex
	conn := bodies(
		"data: {\"message\":\"one\",\"type\":\"info\"}\n\n",
		"data: {\"message\":\"two\",\"type\":\"info\"}\n\n",
		"data: {\"message\":\"fin\",\"type\":\"complete\"}\n\n",
	)
	h := Open(context.Background(), conn, "p1", Options{
		Policy:         RetryTolerant,
		OnEvent:        rec.onEvent,
		OnDone:         rec.onDone,
		ReconnectDelay: 3 * time.Second,
		After:          immediate(&delays, &mu),
	})
	waitDone(t, h)
	events, outcomes := rec.snapshot()
	if len(outcomes) != 1 || outcomes[0] != OutcomeComplete {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
	reconnects := 0
	for _, evt := range events {
		if evt.Message == "Connection interrupted. Reconnecting..." {
			reconnects++
		}
	}
	if reconnects != 2 {
		t.Fatalf("expected 2 reconnect lines, got %d in %+v", reconnects, events)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(delays) != 2 || delays[0] != 3*time.Second {
		t.Fatalf("unexpected reconnect delays %v", delays)
	}
}

func TestRetryTolerantStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	conn := ConnectorFunc(func(context.Context, string) (io.ReadCloser, error) {
		if calls.Add(1) == 3 {
			cancel()
		}
		return nil, errors.New("refused")
	})
	rec := newRecorder()
	h := Open(ctx, conn, "p1", Options{Policy: RetryTolerant, OnDone: rec.onDone, After: immediate(nil, nil)})
	waitDone(t, h)
	if h.Outcome() != OutcomeCancelled {
		t.Fatalf("unexpected outcome %v", h.Outcome())
	}
	if _, outcomes := rec.snapshot(); len(outcomes) != 0 {
		t.Fatalf("cancellation must not call OnDone, got %v", outcomes)
	}
}

func TestCloseStopsDeliveryAndIsIdempotent(t *testing.T) {
	pr, pw := io.Pipe()
	rec := newRecorder()
	delivered := make(chan struct{}, 1)
	h := Open(context.Background(), ConnectorFunc(func(context.Context, string) (io.ReadCloser, error) {
		return pr, nil
	}), "p1", Options{
		OnEvent: func(evt api.ProgressEvent) {
			rec.onEvent(evt)
			delivered <- struct{}{}
		},
		OnDone: rec.onDone,
		After:  immediate(nil, nil),
	})
	if _, err := io.WriteString(pw, "data: {\"message\":\"first\",\"type\":\"info\"}\n\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	<-delivered
	h.Close()
	h.Close()
	_, _ = io.WriteString(pw, "data: {\"message\":\"second\",\"type\":\"complete\"}\n\n")
	_ = pw.Close()
	waitDone(t, h)
	events, outcomes := rec.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected no events after close, got %+v", events)
	}
	if len(outcomes) != 0 {
		t.Fatalf("close must not fire OnDone, got %v", outcomes)
	}
}

func TestRegistryKeepsOneHandlePerKey(t *testing.T) {
	blocking := ConnectorFunc(func(ctx context.Context, _ string) (io.ReadCloser, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	reg := NewRegistry(blocking)
	first := reg.Open(context.Background(), ProjectKey("p1"), "p1", Options{})
	second := reg.Open(context.Background(), ProjectKey("p1"), "p1", Options{})
	other := reg.Open(context.Background(), BlockKey("p1", "intro"), "p1", Options{Policy: RetryTolerant})
	waitDone(t, first)
	if second.Closed() || other.Closed() {
		t.Fatal("replacement and unrelated streams should stay open")
	}
	if active, ok := reg.Active(ProjectKey("p1")); !ok || active != second {
		t.Fatal("expected the second handle to be active")
	}
	reg.CloseAll()
	waitDone(t, second)
	waitDone(t, other)
}

func TestLoadCompletedRetriesUntilFound(t *testing.T) {
	var attempts int
	var delays []time.Duration
	var mu sync.Mutex
	var lines []api.ProgressEvent
	got, err := LoadCompleted(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet generated")
		}
		return 7, nil
	}, PollOptions{
		Retry:   5 * time.Second,
		OnEvent: func(evt api.ProgressEvent) { lines = append(lines, evt) },
		After:   immediate(&delays, &mu),
	})
	if err != nil || got != 7 {
		t.Fatalf("LoadCompleted = %d, %v", got, err)
	}
	if len(delays) != 2 || delays[0] != 5*time.Second {
		t.Fatalf("unexpected delays %v", delays)
	}
	if len(lines) != 2 || !strings.Contains(lines[0].Message, "Will retry in 5s") {
		t.Fatalf("unexpected retry lines %+v", lines)
	}
}

func TestLoadCompletedHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadCompleted(ctx, func(context.Context) (string, error) {
		return "", errors.New("down")
	}, PollOptions{After: immediate(nil, nil)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
