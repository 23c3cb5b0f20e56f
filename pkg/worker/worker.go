package worker

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/observability"
)

// Default channel capacities.
const (
	DefaultInboxSize   = 64
	DefaultEventBuffer = 256
)

// Options configures a [Worker].
type Options struct {
	// InboxSize is the capacity of the message queue (default 64).
	InboxSize int

	// EventBuffer is the capacity of the event channel (default 256).
	EventBuffer int

	// MaxRuns caps concurrently active runs; requests beyond it fail with
	// WORKER_UNAVAILABLE. 0 means no limit.
	MaxRuns int

	// Logger receives run lifecycle messages. Nil uses log.Default().
	Logger *log.Logger
}

func (o Options) withDefaults() (Options, error) {
	switch {
	case o.InboxSize < 0:
		return o, errors.New(errors.ErrCodeWorkerUnavailable, "inbox size must be >= 0, got %d", o.InboxSize)
	case o.EventBuffer < 0:
		return o, errors.New(errors.ErrCodeWorkerUnavailable, "event buffer must be >= 0, got %d", o.EventBuffer)
	case o.MaxRuns < 0:
		return o, errors.New(errors.ErrCodeWorkerUnavailable, "max runs must be >= 0, got %d", o.MaxRuns)
	}
	if o.InboxSize == 0 {
		o.InboxSize = DefaultInboxSize
	}
	if o.EventBuffer == 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o, nil
}

// Worker runs force simulations on a single background goroutine. Runs for
// different graphs are interleaved one tick at a time; messages are handled
// between ticks.
type Worker struct {
	opts   Options
	logger *log.Logger

	inbox  chan Message
	events chan Event

	quit      chan struct{} // closed by Terminate
	done      chan struct{} // closed when the loop has exited
	startOnce sync.Once
	quitOnce  sync.Once

	active  atomic.Int64
	nextRun uint64 // loop goroutine only
}

// NewWorker creates a worker. The worker does nothing until [Worker.Start].
// Invalid options fail with WORKER_UNAVAILABLE.
func NewWorker(opts Options) (*Worker, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Worker{
		opts:   opts,
		logger: opts.Logger,
		inbox:  make(chan Message, opts.InboxSize),
		events: make(chan Event, opts.EventBuffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the worker goroutine. The worker exits when ctx is done or
// [Worker.Terminate] is called. Calling Start more than once, or after
// Terminate, has no effect.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.loop(ctx)
	})
}

// Post queues a message for the worker. Messages are validated here, before
// they reach the simulation goroutine. Post fails with WORKER_TERMINATED once
// the worker has been terminated, including when termination races the send.
func (w *Worker) Post(msg Message) error {
	if msg == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil message")
	}
	if w.terminated() {
		return errors.New(errors.ErrCodeWorkerTerminated, "worker terminated")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	select {
	case w.inbox <- msg:
		// Terminate may have closed quit while the send was pending; the
		// loop never handles messages queued on a quitting worker.
		if w.terminated() {
			return errors.New(errors.ErrCodeWorkerTerminated, "worker terminated")
		}
		return nil
	case <-w.quit:
		return errors.New(errors.ErrCodeWorkerTerminated, "worker terminated")
	case <-w.done:
		return errors.New(errors.ErrCodeWorkerTerminated, "worker stopped")
	}
}

// Events returns the event channel. It is closed after the worker exits.
func (w *Worker) Events() <-chan Event { return w.events }

// Active returns the number of runs currently being stepped.
func (w *Worker) Active() int { return int(w.active.Load()) }

// Terminate stops the worker and waits for its goroutine to exit. Active runs
// end without a Done event. Terminate is idempotent.
func (w *Worker) Terminate() {
	w.quitOnce.Do(func() { close(w.quit) })
	// A worker that was never started has no loop to close its channels.
	w.startOnce.Do(func() {
		close(w.events)
		close(w.done)
	})
	<-w.done
}

func (w *Worker) terminated() bool {
	select {
	case <-w.quit:
		return true
	case <-w.done:
		return true
	default:
		return false
	}
}

// =============================================================================
// Simulation Loop
// =============================================================================

// run is one active simulation.
type run struct {
	id       string
	num      uint64
	sim      *force.Simulation
	started  time.Time
	deadline time.Time
}

// schedule holds the active runs in round-robin order.
type schedule struct {
	runs   map[string]*run
	order  []string
	cursor int
}

func (s *schedule) add(r *run) {
	s.runs[r.id] = r
	s.order = append(s.order, r.id)
}

func (s *schedule) remove(id string) {
	delete(s.runs, id)
	i := slices.Index(s.order, id)
	if i < 0 {
		return
	}
	s.order = slices.Delete(s.order, i, i+1)
	if i < s.cursor {
		s.cursor--
	}
}

func (s *schedule) next() *run {
	if s.cursor >= len(s.order) {
		s.cursor = 0
	}
	r := s.runs[s.order[s.cursor]]
	s.cursor++
	return r
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	defer close(w.events)

	hooks := observability.Worker()
	hooks.OnWorkerStart(ctx)
	defer hooks.OnWorkerStop(ctx)

	sched := &schedule{runs: make(map[string]*run)}
	defer func() { w.active.Store(0) }()

	for {
		if len(sched.order) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-w.quit:
				return
			case msg := <-w.inbox:
				if !w.handle(ctx, sched, msg) {
					return
				}
			}
			continue
		}

		if !w.drain(ctx, sched) {
			return
		}
		if len(sched.order) == 0 {
			continue
		}
		if !w.advance(ctx, sched, sched.next()) {
			return
		}
	}
}

// drain handles every queued message without blocking.
func (w *Worker) drain(ctx context.Context, sched *schedule) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-w.quit:
			return false
		case msg := <-w.inbox:
			if !w.handle(ctx, sched, msg) {
				return false
			}
		default:
			return true
		}
	}
}

func (w *Worker) handle(ctx context.Context, sched *schedule, msg Message) bool {
	switch m := msg.(type) {
	case Request:
		return w.start(ctx, sched, m)
	case Stop:
		r, ok := sched.runs[m.GraphID]
		if !ok {
			w.logger.Debug("stop for idle graph", "graph", m.GraphID)
			return true
		}
		return w.finish(ctx, sched, r, force.ReasonStopped)
	default:
		w.logger.Warn("ignoring unknown message", "type", msg)
		return true
	}
}

func (w *Worker) start(ctx context.Context, sched *schedule, req Request) bool {
	if prev, ok := sched.runs[req.GraphID]; ok {
		// A new graph for a running id replaces the run; nothing is merged.
		w.logger.Debug("restarting run", "graph", req.GraphID, "run", prev.num, "tick", prev.sim.Ticks())
		sched.remove(req.GraphID)
		w.active.Add(-1)
		observability.Worker().OnRunComplete(ctx, prev.id, string(force.ReasonStopped), prev.sim.Ticks(), time.Since(prev.started))
	}

	if w.opts.MaxRuns > 0 && len(sched.runs) >= w.opts.MaxRuns {
		err := errors.New(errors.ErrCodeWorkerUnavailable, "worker busy: %d active runs", len(sched.runs))
		return w.emit(ctx, Failure{GraphID: req.GraphID, Err: err})
	}

	cfg := req.effectiveConfig()
	sim, err := force.New(req.Graph.Nodes, req.Graph.Links, cfg)
	if err != nil {
		return w.emit(ctx, Failure{GraphID: req.GraphID, Err: err})
	}

	w.nextRun++
	now := time.Now()
	r := &run{
		id:       req.GraphID,
		num:      w.nextRun,
		sim:      sim,
		started:  now,
		deadline: cfg.Deadline(now),
	}
	sched.add(r)
	w.active.Add(1)

	if skipped := sim.Skipped(); len(skipped) > 0 {
		w.logger.Debug("skipping dangling links", "graph", r.id, "count", len(skipped))
	}
	w.logger.Debug("run started", "graph", r.id, "run", r.num,
		"nodes", len(req.Graph.Nodes), "links", len(req.Graph.Links))
	observability.Worker().OnRunStart(ctx, r.id, len(req.Graph.Nodes))
	return true
}

// advance steps one run by a single tick and emits its Tick, followed by
// Done when the run has finished.
func (w *Worker) advance(ctx context.Context, sched *schedule, r *run) bool {
	if !r.deadline.IsZero() && !time.Now().Before(r.deadline) {
		return w.finish(ctx, sched, r, force.ReasonTimeout)
	}

	r.sim.Step()
	tick := Tick{
		GraphID: r.id,
		Run:     r.num,
		Seq:     r.sim.Ticks(),
		Alpha:   r.sim.Alpha(),
		Nodes:   r.sim.Nodes(),
		Edges:   r.sim.Edges(),
	}
	if !w.emit(ctx, tick) {
		return false
	}
	observability.Worker().OnTick(ctx, r.id)

	if reason, done := r.sim.Finished(); done {
		return w.finish(ctx, sched, r, reason)
	}
	return true
}

func (w *Worker) finish(ctx context.Context, sched *schedule, r *run, reason force.Reason) bool {
	sched.remove(r.id)
	w.active.Add(-1)

	elapsed := time.Since(r.started)
	w.logger.Debug("run finished", "graph", r.id, "run", r.num, "reason", reason,
		"ticks", r.sim.Ticks(), "elapsed", elapsed.Round(time.Millisecond))
	observability.Worker().OnRunComplete(ctx, r.id, string(reason), r.sim.Ticks(), elapsed)

	return w.emit(ctx, Done{
		GraphID: r.id,
		Run:     r.num,
		Reason:  reason,
		Ticks:   r.sim.Ticks(),
		Alpha:   r.sim.Alpha(),
		Nodes:   r.sim.Nodes(),
		Edges:   r.sim.Edges(),
		Skipped: r.sim.Skipped(),
	})
}

// emit sends an event, giving up when the worker is shutting down.
func (w *Worker) emit(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.quit:
		return false
	case <-ctx.Done():
		return false
	}
}
