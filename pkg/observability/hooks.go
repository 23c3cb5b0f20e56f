// Package observability provides hooks for metrics and tracing.
//
// Library packages emit events through the hooks registered here without
// depending on a metrics backend. The CLI and server register a Prometheus
// implementation (internal/metrics) at startup; everything else sees no-ops.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := metrics.New(prometheus.DefaultRegisterer)
//	    observability.SetWorkerHooks(m)
//	    observability.SetCacheHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Worker().OnRunStart(ctx, graphID, len(nodes))
//	// ... simulate ...
//	observability.Worker().OnRunComplete(ctx, graphID, "converged", ticks, elapsed)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Worker Hooks
// =============================================================================

// WorkerHooks receives events from the layout worker and its manager.
type WorkerHooks interface {
	// Worker lifecycle
	OnWorkerStart(ctx context.Context)
	OnWorkerStop(ctx context.Context)

	// Reference counting; refs is the count after the change.
	OnAcquire(ctx context.Context, refs int)
	OnRelease(ctx context.Context, refs int)

	// Simulation runs
	OnRunStart(ctx context.Context, graphID string, nodeCount int)
	OnTick(ctx context.Context, graphID string)
	OnRunComplete(ctx context.Context, graphID, reason string, ticks int, duration time.Duration)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the cache-through layout pipeline.
type PipelineHooks interface {
	OnLayoutStart(ctx context.Context, graphID string, nodeCount int)
	OnLayoutComplete(ctx context.Context, graphID string, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a completed response. Streaming responses complete
	// when the stream ends.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopWorkerHooks is a no-op implementation of WorkerHooks.
type NoopWorkerHooks struct{}

func (NoopWorkerHooks) OnWorkerStart(context.Context)                                     {}
func (NoopWorkerHooks) OnWorkerStop(context.Context)                                      {}
func (NoopWorkerHooks) OnAcquire(context.Context, int)                                    {}
func (NoopWorkerHooks) OnRelease(context.Context, int)                                    {}
func (NoopWorkerHooks) OnRunStart(context.Context, string, int)                           {}
func (NoopWorkerHooks) OnTick(context.Context, string)                                    {}
func (NoopWorkerHooks) OnRunComplete(context.Context, string, string, int, time.Duration) {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLayoutStart(context.Context, string, int)                       {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, string, time.Duration, error)   {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	workerHooks   WorkerHooks   = NoopWorkerHooks{}
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetWorkerHooks registers custom worker hooks.
// Call once at startup, before the first worker is acquired.
func SetWorkerHooks(h WorkerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		workerHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Worker returns the registered worker hooks.
func Worker() WorkerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return workerHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	workerHooks = NoopWorkerHooks{}
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
