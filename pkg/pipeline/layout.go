package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

// =============================================================================
// Layout Generation
// =============================================================================

// Simulate lays out g on the manager's shared worker and blocks until the run
// ends. Ticks are forwarded to opts.OnTick from the dispatcher goroutine.
//
// Cancelling ctx stops the run and returns the context error. A run that
// ends by timeout still returns its layout; the reason is recorded in it.
func Simulate(ctx context.Context, m *worker.Manager, g *graph.Graph, opts Options) (graph.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout options")
	}
	graphID := opts.GraphID
	if graphID == "" {
		graphID = uuid.NewString()
	}

	final := make(chan worker.Event, 1)
	s, err := m.Open(graphID, func(ev worker.Event) {
		if t, ok := ev.(worker.Tick); ok {
			if opts.OnTick != nil {
				opts.OnTick(t)
			}
			return
		}
		select {
		case final <- ev:
		default:
		}
	})
	if err != nil {
		return graph.Layout{}, err
	}
	defer s.Close()

	opts.Logger.Debug("layout started", "graph", graphID, "nodes", g.NodeCount(), "links", g.EdgeCount())
	if err := s.SubmitWithTimeout(g, opts.Config, opts.Timeout); err != nil {
		return graph.Layout{}, err
	}

	select {
	case ev := <-final:
		switch ev := ev.(type) {
		case worker.Done:
			if len(ev.Skipped) > 0 {
				opts.Logger.Warn("skipped links with unknown endpoints", "graph", graphID, "count", len(ev.Skipped))
			}
			return ev.Layout(), nil
		case worker.Failure:
			return graph.Layout{}, ev.Err
		}
		return graph.Layout{}, errors.New(errors.ErrCodeInternal, "unexpected event %T", ev)
	case <-ctx.Done():
		return graph.Layout{}, ctx.Err()
	}
}
