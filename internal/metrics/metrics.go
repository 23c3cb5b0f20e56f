// Package metrics implements the observability hooks on top of Prometheus.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/forcegraph/pkg/observability"
)

const namespace = "forcegraph"

// Collector bundles the Prometheus metrics of the layout service. It
// implements every hook interface of the observability package.
type Collector struct {
	gatherer prometheus.Gatherer

	WorkerAlive  prometheus.Gauge
	WorkerRefs   prometheus.Gauge
	RunsActive   prometheus.Gauge
	Runs         *prometheus.CounterVec
	RunTicks     prometheus.Histogram
	RunDurations prometheus.Histogram
	Ticks        prometheus.Counter

	Layouts         *prometheus.CounterVec
	LayoutDurations prometheus.Histogram
	Renders         *prometheus.CounterVec

	CacheEvents *prometheus.CounterVec
	CacheBytes  prometheus.Counter

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
	HTTPInflight  prometheus.Gauge
}

var (
	_ observability.WorkerHooks   = (*Collector)(nil)
	_ observability.PipelineHooks = (*Collector)(nil)
	_ observability.CacheHooks    = (*Collector)(nil)
	_ observability.HTTPHooks     = (*Collector)(nil)
)

// New registers the metrics against reg, defaulting to the global registry
// when nil. Registering twice against the same registry reuses the existing
// collectors.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.WorkerAlive, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "worker_alive",
		Help: "1 while a layout worker is running, 0 otherwise.",
	})); err != nil {
		return nil, err
	}
	if c.WorkerRefs, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "worker_refs",
		Help: "Current reference count of the shared layout worker.",
	})); err != nil {
		return nil, err
	}
	if c.RunsActive, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "runs_active",
		Help: "Number of simulation runs currently being stepped.",
	})); err != nil {
		return nil, err
	}
	if c.Runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "runs_total",
		Help: "Finished simulation runs, labeled by termination reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if c.RunTicks, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "run_ticks",
		Help:    "Ticks taken by finished simulation runs.",
		Buckets: []float64{10, 50, 100, 200, 300, 500, 1000, 5000},
	})); err != nil {
		return nil, err
	}
	if c.RunDurations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "run_duration_seconds",
		Help:    "Wall-clock duration of finished simulation runs.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
	})); err != nil {
		return nil, err
	}
	if c.Ticks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ticks_total",
		Help: "Simulation ticks emitted across all runs.",
	})); err != nil {
		return nil, err
	}

	if c.Layouts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "layouts_total",
		Help: "Pipeline layouts, labeled by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.LayoutDurations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "layout_duration_seconds",
		Help:    "Pipeline layout latency, cache hits included.",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if c.Renders, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "renders_total",
		Help: "Rendered artifacts, labeled by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}

	if c.CacheEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_events_total",
		Help: "Cache lookups and writes, labeled by key type and event.",
	}, []string{"key_type", "event"})); err != nil {
		return nil, err
	}
	if c.CacheBytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_written_bytes_total",
		Help: "Bytes written to the cache.",
	})); err != nil {
		return nil, err
	}

	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"})); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds",
		Help:    "HTTP request latency; streaming requests last until the stream ends.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	if c.HTTPInflight, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "http_inflight_requests",
		Help: "HTTP requests currently being served.",
	})); err != nil {
		return nil, err
	}

	return c, nil
}

// Install registers c as the process-wide observability hooks.
func (c *Collector) Install() {
	observability.SetWorkerHooks(c)
	observability.SetPipelineHooks(c)
	observability.SetCacheHooks(c)
	observability.SetHTTPHooks(c)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// =============================================================================
// Worker Hooks
// =============================================================================

func (c *Collector) OnWorkerStart(context.Context) { c.WorkerAlive.Set(1) }

func (c *Collector) OnWorkerStop(context.Context) {
	c.WorkerAlive.Set(0)
	c.RunsActive.Set(0)
}

func (c *Collector) OnAcquire(_ context.Context, refs int) { c.WorkerRefs.Set(float64(refs)) }
func (c *Collector) OnRelease(_ context.Context, refs int) { c.WorkerRefs.Set(float64(refs)) }

func (c *Collector) OnRunStart(context.Context, string, int) { c.RunsActive.Inc() }
func (c *Collector) OnTick(context.Context, string)          { c.Ticks.Inc() }

func (c *Collector) OnRunComplete(_ context.Context, _ string, reason string, ticks int, d time.Duration) {
	c.RunsActive.Dec()
	c.Runs.WithLabelValues(reason).Inc()
	c.RunTicks.Observe(float64(ticks))
	c.RunDurations.Observe(d.Seconds())
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

func (c *Collector) OnLayoutStart(context.Context, string, int) {}

func (c *Collector) OnLayoutComplete(_ context.Context, _ string, d time.Duration, err error) {
	c.Layouts.WithLabelValues(result(err)).Inc()
	c.LayoutDurations.Observe(d.Seconds())
}

func (c *Collector) OnRenderStart(context.Context, []string) {}

func (c *Collector) OnRenderComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	c.Renders.WithLabelValues(result(err)).Inc()
}

// =============================================================================
// Cache Hooks
// =============================================================================

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheEvents.WithLabelValues(keyType, "set").Inc()
	c.CacheBytes.Add(float64(size))
}

// =============================================================================
// HTTP Hooks
// =============================================================================

func (c *Collector) OnRequest(context.Context, string, string) { c.HTTPInflight.Inc() }

func (c *Collector) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	c.HTTPInflight.Dec()
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

// =============================================================================
// Helpers
// =============================================================================

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// register adds col to reg, returning the already registered collector of
// the same type when one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return col, err
		}
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			return col, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return existing, nil
	}
	return col, nil
}
