package worker

import (
	"sync"
	"time"

	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Session is one graph's view of the shared worker, created by
// [Manager.Open]. It holds one reference until closed.
type Session struct {
	m    *Manager
	h    *Handle
	id   string
	once sync.Once
}

// ID returns the graph identifier of the session.
func (s *Session) ID() string { return s.id }

// Submit starts a simulation of g. Submitting again restarts the run.
func (s *Session) Submit(g *graph.Graph, cfg force.Config) error {
	return s.h.Post(Request{GraphID: s.id, Graph: g, Config: cfg})
}

// SubmitWithTimeout is Submit with a wall-clock limit on the run.
func (s *Session) SubmitWithTimeout(g *graph.Graph, cfg force.Config, timeout time.Duration) error {
	return s.h.Post(Request{GraphID: s.id, Graph: g, Config: cfg, Timeout: timeout})
}

// Post forwards a decoded wire message, addressed to the session's graph
// whatever identifier it carries.
func (s *Session) Post(msg Message) error {
	switch m := msg.(type) {
	case Request:
		m.GraphID = s.id
		return s.h.Post(m)
	case Stop:
		m.GraphID = s.id
		return s.h.Post(m)
	default:
		return s.h.Post(msg)
	}
}

// Stop halts the session's run. The run ends with a Done event whose reason
// is "stopped".
func (s *Session) Stop() error {
	return s.h.Post(Stop{GraphID: s.id})
}

// Close stops any active run, deregisters the callback and releases the
// session's reference. Only the first call has an effect. A session whose
// worker was terminated releases nothing on the worker that replaced it.
func (s *Session) Close() {
	s.once.Do(func() {
		if s.h.Alive() {
			_ = s.h.Post(Stop{GraphID: s.id})
		}
		s.m.release(s.id, s.h.gen)
	})
}
