// Package registry is the in-memory single source of truth for every test
// run the current session has started or is tracking. All mutation goes
// through Update so concurrent observers always see one consistent view.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// EventType tags a change notification.
type EventType string

const (
	EventRegistered EventType = "registered"
	EventUpdated    EventType = "updated"
	EventRemoved    EventType = "removed"
)

// Event is one change notification. Run is a value copy taken under the
// per-id lock; receivers may keep it without racing the registry.
type Event struct {
	Type EventType
	Run  RunHandle
}

// entry pairs a handle with its per-id lock and the cancellation handle of
// the polling loop currently bound to the run, if any.
type entry struct {
	mu     sync.Mutex
	handle RunHandle
	cancel context.CancelFunc
}

// Registry holds all live run handles. The outer lock only guards the map
// shape; each handle has its own lock, so updates to different ids never
// block each other while updates to the same id are serialized.
type Registry struct {
	mu      sync.RWMutex
	runs    map[string]*entry
	removed map[string]struct{} // tombstones; removed ids are never re-registered
	subs    map[string]chan Event
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		runs:    make(map[string]*entry),
		removed: make(map[string]struct{}),
		subs:    make(map[string]chan Event),
		logger:  logger,
	}
}

// Register adds a new handle. At most one handle may exist per run id, and a
// removed id stays removed.
func (r *Registry) Register(handle RunHandle) error {
	r.mu.Lock()
	if _, ok := r.runs[handle.ID]; ok {
		r.mu.Unlock()
		return &AlreadyRegisteredError{RunID: handle.ID}
	}
	if _, ok := r.removed[handle.ID]; ok {
		r.mu.Unlock()
		return &AlreadyRegisteredError{RunID: handle.ID}
	}
	r.runs[handle.ID] = &entry{handle: handle}
	r.mu.Unlock()

	r.logger.Info("Run registered", "run_id", handle.ID, "model_id", handle.Request.ModelID, "status", handle.Status.String())
	r.notify(Event{Type: EventRegistered, Run: handle})
	return nil
}

// Get returns a copy of the handle for id.
func (r *Registry) Get(id string) (RunHandle, bool) {
	e := r.entry(id)
	if e == nil {
		return RunHandle{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle, true
}

// Update applies mutate to the handle for id as one atomic read-modify-write.
// An unknown id is reported as NotFoundError; nothing is ever created here.
// If mutate returns an error the mutation is discarded.
func (r *Registry) Update(id string, mutate func(*RunHandle) error) error {
	e := r.entry(id)
	if e == nil {
		return &NotFoundError{RunID: id}
	}

	e.mu.Lock()
	working := e.handle
	if err := mutate(&working); err != nil {
		e.mu.Unlock()
		return err
	}
	e.handle = working
	snapshot := e.handle
	e.mu.Unlock()

	r.notify(Event{Type: EventUpdated, Run: snapshot})
	return nil
}

// Remove deletes the handle for id and tombstones the id. Any poll bound to
// the run is cancelled first.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.runs[id]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{RunID: id}
	}
	delete(r.runs, id)
	r.removed[id] = struct{}{}
	r.mu.Unlock()

	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	snapshot := e.handle
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	r.logger.Info("Run removed", "run_id", id)
	r.notify(Event{Type: EventRemoved, Run: snapshot})
	return nil
}

// ListActive returns copies of all handles not in a terminal state.
func (r *Registry) ListActive() []RunHandle {
	return r.list(func(h *RunHandle) bool { return h.Active() })
}

// ListAll returns copies of all known handles, newest submission first.
func (r *Registry) ListAll() []RunHandle {
	return r.list(func(h *RunHandle) bool { return true })
}

func (r *Registry) list(keep func(*RunHandle) bool) []RunHandle {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.runs))
	for _, e := range r.runs {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	handles := make([]RunHandle, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if keep(&e.handle) {
			handles = append(handles, e.handle)
		}
		e.mu.Unlock()
	}
	sort.Slice(handles, func(i, j int) bool {
		return handles[i].SubmittedAt.After(handles[j].SubmittedAt)
	})
	return handles
}

// BindPoll stores the cancellation handle of the polling loop now tracking
// id. Starting a new poll for an id implicitly cancels any prior loop for
// that id, so two loops never run concurrently for the same run.
func (r *Registry) BindPoll(id string, cancel context.CancelFunc) error {
	e := r.entry(id)
	if e == nil {
		return &NotFoundError{RunID: id}
	}
	e.mu.Lock()
	prior := e.cancel
	e.cancel = cancel
	e.mu.Unlock()
	if prior != nil {
		r.logger.Warn("Replacing poll for run", "run_id", id)
		prior()
	}
	return nil
}

// CancelPoll signals the polling loop bound to id, if any, and clears the
// binding. Safe to call when no loop is bound.
func (r *Registry) CancelPoll(id string) {
	e := r.entry(id)
	if e == nil {
		return
	}
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Subscribe registers a change observer. The returned channel is buffered;
// a receiver that falls behind loses events rather than blocking registry
// mutation. The second return value unsubscribes and closes the channel.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	id := uuid.New().String()

	r.mu.Lock()
	r.subs[id] = ch
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		sub, ok := r.subs[id]
		delete(r.subs, id)
		r.mu.Unlock()
		if ok {
			close(sub)
		}
	}
	return ch, unsubscribe
}

func (r *Registry) notify(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
			// slow observers miss events instead of stalling the registry
		}
	}
}

func (r *Registry) entry(id string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs[id]
}
