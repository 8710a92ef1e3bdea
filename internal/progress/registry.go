package progress

import (
	"context"
	"sync"
)

// ProjectKey is the registry key for the project view's stream.
func ProjectKey(projectID string) string {
	return "project:" + projectID
}

// BlockKey is the registry key for a storyboard grid block's stream.
func BlockKey(projectID, folder string) string {
	return "block:" + projectID + "/" + folder
}

// Registry keeps at most one live stream per key. Opening a key that already
// has a stream closes the previous one first.
type Registry struct {
	conn Connector

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry returns an empty registry that opens streams through conn.
func NewRegistry(conn Connector) *Registry {
	return &Registry{conn: conn, handles: make(map[string]*Handle)}
}

// Open replaces any stream registered under key with a new one.
func (r *Registry) Open(ctx context.Context, key, projectID string, opts Options) *Handle {
	r.mu.Lock()
	prev := r.handles[key]
	r.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	h := Open(ctx, r.conn, projectID, opts)

	r.mu.Lock()
	if cur := r.handles[key]; cur != nil && cur != prev {
		cur.Close()
	}
	r.handles[key] = h
	r.mu.Unlock()

	go func() {
		<-h.Done()
		r.mu.Lock()
		if r.handles[key] == h {
			delete(r.handles, key)
		}
		r.mu.Unlock()
	}()
	return h
}

// Active returns the live stream for key, if any.
func (r *Registry) Active(key string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[key]
	if !ok || h.Closed() {
		return nil, false
	}
	return h, true
}

// Close stops the stream under key.
func (r *Registry) Close(key string) {
	r.mu.Lock()
	h := r.handles[key]
	delete(r.handles, key)
	r.mu.Unlock()
	if h != nil {
		h.Close()
	}
}

// CloseAll stops every registered stream.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()
	for _, h := range handles {
		h.Close()
	}
}

// Len reports how many streams are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
