package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/observability"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner holds no per-run state. Multiple goroutines can safely use the
// same Runner with different options; their simulations are interleaved on
// the manager's single worker.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Manager *worker.Manager
	Logger  *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If m is nil, the runner gets a manager of its own.
func NewRunner(c cache.Cache, keyer cache.Keyer, m *worker.Manager, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if m == nil {
		m = worker.NewManager(worker.Options{Logger: logger})
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		Manager: m,
		Logger:  logger,
	}
}

// Execute runs the complete layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, g *graph.Graph, opts Options) (*Result, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph is required")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
		Stats: Stats{
			NodeCount: g.NodeCount(),
			EdgeCount: g.EdgeCount(),
		},
	}
	if hash, err := GraphHash(g); err == nil {
		result.GraphHash = hash
	}

	// Stage 1: Layout
	layoutStart := time.Now()
	layout, layoutHit, err := r.LayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.GraphID = layout.GraphID
	result.Layout = layout
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"nodes", len(layout.Nodes),
		"ticks", layout.Ticks,
		"reason", layout.Reason,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, layout, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo computes a layout with caching and reports whether it
// came from the cache. Only deterministic outcomes (converged or tick-limit)
// are stored; a stopped or timed-out layout depends on wall-clock time.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (graph.Layout, bool, error) {
	if g == nil {
		return graph.Layout{}, false, errors.New(errors.ErrCodeInvalidInput, "graph is required")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, false, err
	}

	graphHash, err := GraphHash(g)
	if err != nil {
		return graph.Layout{}, false, fmt.Errorf("hash graph: %w", err)
	}
	cacheKey := r.Keyer.LayoutKey(graphHash, opts.LayoutKeyOpts())
	hooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			cached, err := graph.UnmarshalLayout(data)
			if err == nil {
				hooks.OnCacheHit(ctx, "layout")
				if opts.GraphID != "" {
					cached.GraphID = opts.GraphID
				}
				return cached, true, nil
			}
			// Undecodable entries fall through to recompute and are overwritten.
		}
		hooks.OnCacheMiss(ctx, "layout")
	}

	ph := observability.Pipeline()
	ph.OnLayoutStart(ctx, opts.GraphID, g.NodeCount())
	start := time.Now()
	layout, err := Simulate(ctx, r.Manager, g, opts)
	ph.OnLayoutComplete(ctx, layout.GraphID, time.Since(start), err)
	if err != nil {
		return graph.Layout{}, false, err
	}

	if cacheable(layout) {
		if data, err := graph.MarshalLayout(layout); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err != nil {
				r.Logger.Warn("cache write failed", "key", cacheKey, "error", err)
			} else {
				hooks.OnCacheSet(ctx, "layout", len(data))
			}
		}
	}

	return layout, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, g *graph.Graph, opts Options) (graph.Layout, error) {
	layout, _, err := r.LayoutWithCacheInfo(ctx, g, opts)
	return layout, err
}

// RenderWithCacheInfo generates artifacts with caching and reports whether
// all of them came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, layout graph.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutData, err := graph.MarshalLayout(layout)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)
	hooks := observability.Cache()

	allCached := true
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		hooks.OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	hooks.OnCacheMiss(ctx, "artifact")

	ph := observability.Pipeline()
	ph.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := Render(ctx, layout, opts)
	ph.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, layout graph.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, layout, opts)
	return artifacts, err
}

// Close releases resources held by the runner: the cache and the shared
// worker, if one is still alive.
func (r *Runner) Close() error {
	if r.Manager != nil {
		r.Manager.TerminateInstance()
	}
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// GraphHash returns the content hash of g used in layout cache keys.
func GraphHash(g *graph.Graph) (string, error) {
	data, err := graph.MarshalGraph(g)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

func cacheable(l graph.Layout) bool {
	switch force.Reason(l.Reason) {
	case force.ReasonConverged, force.ReasonTickLimit:
		return true
	}
	return false
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
