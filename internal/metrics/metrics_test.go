package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/forcegraph/pkg/observability"
)

func newCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, reg
}

func TestWorkerHooksRecordRuns(t *testing.T) {
	c, _ := newCollector(t)
	ctx := context.Background()

	c.OnWorkerStart(ctx)
	c.OnAcquire(ctx, 2)
	c.OnRunStart(ctx, "g1", 10)
	c.OnTick(ctx, "g1")
	c.OnTick(ctx, "g1")

	if got := testutil.ToFloat64(c.WorkerAlive); got != 1 {
		t.Errorf("worker_alive = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.WorkerRefs); got != 2 {
		t.Errorf("worker_refs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RunsActive); got != 1 {
		t.Errorf("runs_active = %v, want 1", got)
	}

	c.OnRunComplete(ctx, "g1", "converged", 2, 10*time.Millisecond)
	c.OnRelease(ctx, 0)
	c.OnWorkerStop(ctx)

	if got := testutil.ToFloat64(c.Runs.WithLabelValues("converged")); got != 1 {
		t.Errorf("runs_total{converged} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Ticks); got != 2 {
		t.Errorf("ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RunsActive); got != 0 {
		t.Errorf("runs_active = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.WorkerAlive); got != 0 {
		t.Errorf("worker_alive = %v, want 0", got)
	}
}

func TestPipelineAndCacheHooks(t *testing.T) {
	c, _ := newCollector(t)
	ctx := context.Background()

	c.OnLayoutComplete(ctx, "g1", time.Millisecond, nil)
	c.OnLayoutComplete(ctx, "g2", time.Millisecond, errors.New("boom"))
	c.OnRenderComplete(ctx, []string{"svg"}, time.Millisecond, nil)
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "layout", 512)

	tests := []struct {
		name string
		col  prometheus.Collector
		want float64
	}{
		{"layouts ok", c.Layouts.WithLabelValues("ok"), 1},
		{"layouts error", c.Layouts.WithLabelValues("error"), 1},
		{"renders ok", c.Renders.WithLabelValues("ok"), 1},
		{"cache hit", c.CacheEvents.WithLabelValues("layout", "hit"), 1},
		{"cache miss", c.CacheEvents.WithLabelValues("layout", "miss"), 1},
		{"cache set", c.CacheEvents.WithLabelValues("layout", "set"), 1},
		{"cache bytes", c.CacheBytes, 512},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.col); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	c, _ := newCollector(t)
	ctx := context.Background()

	c.OnRequest(ctx, http.MethodPost, "/api/layout")
	c.OnResponse(ctx, http.MethodPost, "/api/layout", 200, 50*time.Millisecond)

	if got := testutil.ToFloat64(c.HTTPInflight); got != 0 {
		t.Errorf("http_inflight_requests = %v, want 0", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{
		`forcegraph_http_requests_total{code="200",method="POST",route="/api/layout"} 1`,
		"forcegraph_http_request_duration_seconds_count",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}

	first.Ticks.Inc()
	if got := testutil.ToFloat64(second.Ticks); got != 1 {
		t.Errorf("shared ticks_total = %v, want 1", got)
	}
}

func TestInstall(t *testing.T) {
	c, _ := newCollector(t)
	c.Install()
	defer observability.Reset()

	if observability.Worker() != c {
		t.Error("Install should register worker hooks")
	}
	if observability.Cache() != c {
		t.Error("Install should register cache hooks")
	}
}
