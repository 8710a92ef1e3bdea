package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cutroom/internal/api"
)

// Request is a call recorded by FakeBackend.
type Request struct {
	Method string
	Path   string
	Body   string
}

// FakeBackend is an httptest server with per-route handlers that records
// every request it sees.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewFakeBackend starts a server and registers cleanup. Unrouted requests
// answer 404 with an {error} body.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{routes: map[string]http.HandlerFunc{}}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Close)
	return fb
}

// Handle registers a handler for "METHOD /path".
func (fb *FakeBackend) Handle(method, path string, handler http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[method+" "+path] = handler
}

// JSON registers a handler that answers with status and a JSON body.
func (fb *FakeBackend) JSON(method, path string, status int, body any) {
	fb.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Events registers an SSE handler that emits events and closes the stream.
func (fb *FakeBackend) Events(projectID string, events ...api.ProgressEvent) {
	fb.Handle(http.MethodGet, "/api/project/"+projectID+"/progress", func(w http.ResponseWriter, _ *http.Request) {
		WriteSSE(w, events...)
	})
}

// Requests returns a snapshot of recorded calls.
func (fb *FakeBackend) Requests() []Request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Request(nil), fb.requests...)
}

// Count returns how many recorded calls matched method and path.
func (fb *FakeBackend) Count(method, path string) int {
	n := 0
	for _, req := range fb.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// LastBody returns the body of the most recent call to method and path.
func (fb *FakeBackend) LastBody(method, path string) string {
	reqs := fb.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i].Body
		}
	}
	return ""
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	var body string
	if r.Body != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		r.Body = io.NopCloser(strings.NewReader(body))
	}
	fb.mu.Lock()
	fb.requests = append(fb.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
	handler := fb.routes[r.Method+" "+r.URL.Path]
	fb.mu.Unlock()

	if handler == nil {
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		return
	}
	handler(w, r)
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteSSE writes events in text/event-stream framing and flushes.
func WriteSSE(w http.ResponseWriter, events ...api.ProgressEvent) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, evt := range events {
		data, _ := json.Marshal(evt)
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
