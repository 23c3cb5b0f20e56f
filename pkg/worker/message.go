package worker

import (
	"time"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

// =============================================================================
// Inbound Messages
// =============================================================================

// Message is a message posted to a worker: a [Request] or a [Stop].
type Message interface {
	// Validate reports whether the message may cross into the worker.
	Validate() error

	messageGraphID() string
}

// Request starts (or restarts) a simulation for GraphID.
type Request struct {
	GraphID string
	Graph   *graph.Graph
	Config  force.Config

	// Timeout overrides Config.Timeout when positive.
	Timeout time.Duration
}

// Validate rejects requests without a usable graph identifier, without a
// graph, or with an invalid configuration.
func (r Request) Validate() error {
	if err := errors.ValidateGraphID(r.GraphID); err != nil {
		return err
	}
	if r.Graph == nil {
		return errors.New(errors.ErrCodeInvalidInput, "request for %q carries no graph", r.GraphID)
	}
	if r.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must be >= 0, got %v", r.Timeout)
	}
	return r.Config.Validate()
}

// effectiveConfig applies the request timeout to the simulation config.
func (r Request) effectiveConfig() force.Config {
	cfg := r.Config
	if r.Timeout > 0 {
		cfg.Timeout = r.Timeout
	}
	return cfg
}

func (r Request) messageGraphID() string { return r.GraphID }

// Stop halts the run for GraphID. Stopping a graph that is not running is a
// no-op.
type Stop struct {
	GraphID string
}

// Validate rejects stops without a usable graph identifier.
func (s Stop) Validate() error { return errors.ValidateGraphID(s.GraphID) }

func (s Stop) messageGraphID() string { return s.GraphID }

// =============================================================================
// Outbound Events
// =============================================================================

// Event is emitted by a worker: a [Tick], a [Done] or a [Failure].
type Event interface {
	eventGraphID() string
}

// GraphIDOf returns the graph identifier an event belongs to.
func GraphIDOf(ev Event) string { return ev.eventGraphID() }

// Tick carries the positions after one simulation step. Nodes and Edges are
// copies owned by the receiver.
type Tick struct {
	GraphID string
	Run     uint64 // increments each time the graph is (re)started
	Seq     int    // tick number within the run, starting at 1
	Alpha   float64
	Nodes   []graph.Node
	Edges   []graph.Edge
}

func (t Tick) eventGraphID() string { return t.GraphID }

// Done is the last event of a run.
type Done struct {
	GraphID string
	Run     uint64
	Reason  force.Reason
	Ticks   int
	Alpha   float64
	Nodes   []graph.Node
	Edges   []graph.Edge
	Skipped []graph.Edge
}

func (d Done) eventGraphID() string { return d.GraphID }

// Layout converts the final state of the run into its serialized form.
func (d Done) Layout() graph.Layout {
	return graph.Layout{
		GraphID: d.GraphID,
		Nodes:   graph.CloneNodes(d.Nodes),
		Links:   graph.CloneEdges(d.Edges),
		Ticks:   d.Ticks,
		Alpha:   d.Alpha,
		Reason:  string(d.Reason),
		Bounds:  graph.ComputeBounds(d.Nodes),
		Skipped: graph.CloneEdges(d.Skipped),
	}
}

// Failure reports a request the worker accepted but could not run.
type Failure struct {
	GraphID string
	Err     error
}

func (f Failure) eventGraphID() string { return f.GraphID }
