package worker

import (
	"context"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/observability"
)

// Callback receives the events of one graph. Callbacks run sequentially on
// the manager's dispatcher goroutine and must not block for long.
type Callback func(Event)

// registration is a callback table entry, stamped with the worker
// generation it belongs to.
type registration struct {
	cb  Callback
	gen uint64
}

// Manager shares one lazily created [Worker] between any number of graph
// sessions. It reference-counts acquisitions and tears the worker down when
// the count returns to zero.
//
// Invariant: RefCount() == 0 exactly when Alive() is false.
type Manager struct {
	opts   Options
	logger *log.Logger

	mu        sync.Mutex
	worker    *Worker
	refs      int
	gen       uint64
	callbacks map[string]registration
}

// NewManager creates a manager whose workers are built from opts. No worker
// exists until the first [Manager.Acquire].
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		opts:      opts,
		logger:    logger,
		gen:       1,
		callbacks: make(map[string]registration),
	}
}

// Handle posts messages to the worker it was acquired from.
type Handle struct {
	w   *Worker
	gen uint64
}

// Post queues a message. Posting to a torn-down worker fails with
// WORKER_TERMINATED.
func (h *Handle) Post(msg Message) error { return h.w.Post(msg) }

// Alive reports whether the underlying worker still accepts messages.
func (h *Handle) Alive() bool { return !h.w.terminated() }

// =============================================================================
// Reference Counting
// =============================================================================

// Acquire returns a handle to the shared worker, creating and starting it if
// none exists, and increments the reference count. A worker that cannot be
// constructed fails with WORKER_UNAVAILABLE and leaves the count unchanged.
func (m *Manager) Acquire() (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.worker == nil {
		w, err := NewWorker(m.opts)
		if err != nil {
			m.logger.Error("layout worker unavailable", "error", err)
			return nil, err
		}
		w.Start(context.Background())
		m.worker = w
		go m.dispatch(w, m.gen)
		m.logger.Debug("layout worker started", "generation", m.gen)
	}

	m.refs++
	observability.Worker().OnAcquire(context.Background(), m.refs)
	return &Handle{w: m.worker, gen: m.gen}, nil
}

// RegisterCallback routes events for graphID to cb. A later registration for
// the same graph replaces the earlier one.
func (m *Manager) RegisterCallback(graphID string, cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[graphID] = registration{cb: cb, gen: m.gen}
}

// DeregisterCallback removes the callback for graphID and releases one
// reference. Releasing the last reference terminates the worker. A
// deregistration without a matching registration still releases a reference;
// the count never drops below zero.
func (m *Manager) DeregisterCallback(graphID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deregisterLocked(graphID)
}

// release is DeregisterCallback for a session acquired under gen. A session
// that outlived its worker holds no reference on the current one: it only
// drops its own registration and leaves the live worker alone.
func (m *Manager) release(graphID string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		if reg, ok := m.callbacks[graphID]; ok && reg.gen == gen {
			delete(m.callbacks, graphID)
		}
		m.logger.Debug("stale session closed", "graph", graphID, "generation", gen)
		return
	}
	m.deregisterLocked(graphID)
}

// deregisterLocked removes graphID's callback and releases one reference.
// Callers hold m.mu.
func (m *Manager) deregisterLocked(graphID string) {
	if _, ok := m.callbacks[graphID]; ok {
		delete(m.callbacks, graphID)
	} else {
		m.logger.Debug("deregister without registration", "graph", graphID)
	}

	if m.refs > 0 {
		m.refs--
	}
	observability.Worker().OnRelease(context.Background(), m.refs)

	if m.refs == 0 && m.worker != nil {
		m.teardownLocked()
	}
}

// TerminateInstance tears down the worker and clears every callback,
// regardless of outstanding references.
func (m *Manager) TerminateInstance() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.worker != nil {
		m.teardownLocked()
	}
	m.refs = 0
	clear(m.callbacks)
}

// teardownLocked terminates the live worker and drops the callbacks that
// belong to its generation. Callers hold m.mu.
func (m *Manager) teardownLocked() {
	w := m.worker
	m.worker = nil
	for id, reg := range m.callbacks {
		if reg.gen == m.gen {
			delete(m.callbacks, id)
		}
	}
	m.logger.Debug("layout worker terminated", "generation", m.gen)
	m.gen++
	w.Terminate()
}

// =============================================================================
// Introspection
// =============================================================================

// RefCount returns the number of outstanding references.
func (m *Manager) RefCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Alive reports whether a worker currently exists.
func (m *Manager) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worker != nil
}

// Registered reports whether a callback is registered for graphID.
func (m *Manager) Registered(graphID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.callbacks[graphID]
	return ok
}

// Graphs returns the identifiers with a registered callback, sorted.
func (m *Manager) Graphs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.callbacks))
	for id := range m.callbacks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveRuns returns the number of runs the live worker is stepping.
func (m *Manager) ActiveRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker == nil {
		return 0
	}
	return m.worker.Active()
}

// =============================================================================
// Dispatch
// =============================================================================

// dispatch delivers the events of w to the registered callbacks until w's
// event channel closes. Events of a worker that is no longer live, or for
// graphs registered against another generation, are dropped.
func (m *Manager) dispatch(w *Worker, gen uint64) {
	for ev := range w.Events() {
		m.mu.Lock()
		var cb Callback
		if m.worker == w {
			if reg, ok := m.callbacks[GraphIDOf(ev)]; ok && reg.gen == gen {
				cb = reg.cb
			}
		}
		m.mu.Unlock()

		if cb != nil {
			cb(ev)
		}
	}
}

// =============================================================================
// Sessions
// =============================================================================

// Open acquires the worker and registers cb for graphID in one step.
func (m *Manager) Open(graphID string, cb Callback) (*Session, error) {
	if err := errors.ValidateGraphID(graphID); err != nil {
		return nil, err
	}
	h, err := m.Acquire()
	if err != nil {
		return nil, err
	}
	m.RegisterCallback(graphID, cb)
	return &Session{m: m, h: h, id: graphID}, nil
}
