package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

func triangle() *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Links: []graph.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "a"},
		},
	}
}

func shortConfig() force.Config {
	cfg := force.DefaultConfig()
	cfg.MaxTicks = 20
	return cfg
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, worker.NewManager(worker.Options{}), nil)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"json", "svg"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateVariant(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"default", false},
		{"tree", false},
		{"radial", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateVariant(tt.variant)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateVariant(%q) error = %v, wantErr %v", tt.variant, err, tt.wantErr)
		}
	}
}

func TestSetLayoutDefaults(t *testing.T) {
	opts := Options{}
	opts.SetLayoutDefaults()

	if opts.Variant != VariantDefault {
		t.Errorf("Variant = %s, want %s", opts.Variant, VariantDefault)
	}
	if opts.Config != force.DefaultConfig() {
		t.Error("zero Config should be replaced by the defaults")
	}
	if opts.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", opts.Timeout)
	}
	if opts.Logger == nil {
		t.Error("Logger should be set")
	}

	tree := Options{Variant: VariantTree}
	tree.SetLayoutDefaults()
	if tree.Timeout != force.TreeTimeout {
		t.Errorf("tree Timeout = %v, want %v", tree.Timeout, force.TreeTimeout)
	}

	explicit := Options{Variant: VariantTree, Timeout: time.Second}
	explicit.SetLayoutDefaults()
	if explicit.Timeout != time.Second {
		t.Errorf("explicit Timeout = %v, want 1s", explicit.Timeout)
	}
}

func TestSetRenderDefaults(t *testing.T) {
	opts := Options{}
	opts.SetRenderDefaults()

	if len(opts.Formats) != 1 || opts.Formats[0] != FormatJSON {
		t.Errorf("Formats = %v, want [json]", opts.Formats)
	}
}

func TestValidateForLayout(t *testing.T) {
	bad := force.DefaultConfig()
	bad.AlphaMin = -1

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"Defaults", Options{}, false},
		{"Tree", Options{Variant: VariantTree}, false},
		{"UnknownVariant", Options{Variant: "radial"}, true},
		{"NegativeTimeout", Options{Timeout: -time.Second}, true},
		{"BadConfig", Options{Config: bad}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateForLayout()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateForLayout() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Variant: VariantTree}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}
	timeout, formats := opts.Timeout, len(opts.Formats)

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}
	if opts.Timeout != timeout || len(opts.Formats) != formats {
		t.Error("options changed on second call")
	}
}

func TestLayoutKeyOpts(t *testing.T) {
	k := cache.NewDefaultKeyer()
	a := Options{}
	a.SetLayoutDefaults()
	b := a
	b.Timeout = time.Second
	c := a
	c.Variant = VariantTree

	ka := k.LayoutKey("h", a.LayoutKeyOpts())
	if ka == k.LayoutKey("h", b.LayoutKeyOpts()) {
		t.Error("timeout should be part of the layout key")
	}
	if ka == k.LayoutKey("h", c.LayoutKeyOpts()) {
		t.Error("variant should be part of the layout key")
	}
}

func TestRunnerExecute(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	var ticks atomic.Int64
	opts := Options{
		GraphID: "tri",
		Config:  shortConfig(),
		Formats: []string{FormatJSON, FormatDOT},
		OnTick:  func(worker.Tick) { ticks.Add(1) },
	}

	result, err := r.Execute(ctx, triangle(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Layout.Reason != string(force.ReasonTickLimit) || result.Layout.Ticks != 20 {
		t.Errorf("layout = %s after %d ticks, want tick-limit after 20", result.Layout.Reason, result.Layout.Ticks)
	}
	if result.GraphID != "tri" {
		t.Errorf("GraphID = %q, want tri", result.GraphID)
	}
	if got := ticks.Load(); got != 20 {
		t.Errorf("OnTick called %d times, want 20", got)
	}
	if result.CacheInfo.LayoutHit || result.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}
	if result.Stats.NodeCount != 3 || result.Stats.EdgeCount != 3 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if !strings.Contains(string(result.Artifacts[FormatDOT]), "graph G") {
		t.Error("dot artifact missing graph declaration")
	}
	if _, err := graph.UnmarshalLayout(result.Artifacts[FormatJSON]); err != nil {
		t.Errorf("json artifact: %v", err)
	}

	again, err := r.Execute(ctx, triangle(), opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !again.CacheInfo.LayoutHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v, want all hits", again.CacheInfo)
	}
	if again.GraphHash != result.GraphHash {
		t.Error("graph hash should be stable")
	}
	if r.Manager.Alive() {
		t.Error("worker should be torn down once the run's session closes")
	}
}

func TestRunnerRefreshBypassesCache(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	opts := Options{Config: shortConfig()}

	if _, _, err := r.LayoutWithCacheInfo(ctx, triangle(), opts); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	opts.Refresh = true
	_, hit, err := r.LayoutWithCacheInfo(ctx, triangle(), opts)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if hit {
		t.Error("Refresh should skip the cache read")
	}
}

func TestRunnerDoesNotCacheTimeouts(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	cfg := force.DefaultConfig()
	cfg.AlphaDecay = 1e-9
	opts := Options{Config: cfg, Timeout: 20 * time.Millisecond}

	l, err := r.Layout(ctx, triangle(), opts)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if l.Reason != string(force.ReasonTimeout) {
		t.Fatalf("Reason = %s, want timeout", l.Reason)
	}

	_, hit, err := r.LayoutWithCacheInfo(ctx, triangle(), opts)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if hit {
		t.Error("timed-out layouts should not be cached")
	}
}

func TestSimulateContextCancel(t *testing.T) {
	m := worker.NewManager(worker.Options{})
	defer m.TerminateInstance()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := force.DefaultConfig()
	cfg.AlphaDecay = 1e-9

	var once atomic.Bool
	_, err := Simulate(ctx, m, triangle(), Options{
		Config: cfg,
		OnTick: func(worker.Tick) {
			if once.CompareAndSwap(false, true) {
				cancel()
			}
		},
	})
	if err != context.Canceled {
		t.Errorf("Simulate() error = %v, want context.Canceled", err)
	}
	if m.RefCount() != 0 {
		t.Errorf("RefCount() = %d after cancel, want 0", m.RefCount())
	}
}

func TestSimulateGeneratesGraphID(t *testing.T) {
	m := worker.NewManager(worker.Options{})
	l, err := Simulate(context.Background(), m, triangle(), Options{Config: shortConfig()})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if err := errors.ValidateGraphID(l.GraphID); err != nil {
		t.Errorf("generated graph id %q: %v", l.GraphID, err)
	}
}

func TestRunnerRejectsNilGraph(t *testing.T) {
	r := newTestRunner(t)
	if _, err := r.Execute(context.Background(), nil, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Execute(nil) error = %v, want %v", err, errors.ErrCodeInvalidInput)
	}
}

func TestRenderFormats(t *testing.T) {
	l := graph.Layout{
		Nodes:  []graph.Node{{ID: "a", X: 1, Y: 2}},
		Reason: "converged",
	}

	artifacts, err := Render(context.Background(), l, Options{Formats: []string{FormatJSON, FormatDOT}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(artifacts) != 2 {
		t.Errorf("artifacts = %d, want 2", len(artifacts))
	}

	if _, err := Render(context.Background(), l, Options{Formats: []string{"pdf"}}); err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestRenderFromLayoutData(t *testing.T) {
	if _, err := RenderFromLayoutData(context.Background(), []byte(`{"nodes": []}`), Options{}); err == nil {
		t.Error("layout without reason should fail")
	}
	artifacts, err := RenderFromLayoutData(context.Background(), []byte(`{"nodes": [], "reason": "stopped"}`), Options{})
	if err != nil {
		t.Fatalf("RenderFromLayoutData: %v", err)
	}
	if _, ok := artifacts[FormatJSON]; !ok {
		t.Error("default format should be json")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		strict  bool
		wantErr errors.Code
	}{
		{"Valid", `{"nodes": [{"id": "a"}, {"id": "b"}], "links": [{"source": "a", "target": "b"}]}`, true, ""},
		{"DanglingLenient", `{"nodes": [{"id": "a"}], "links": [{"source": "a", "target": "z"}]}`, false, ""},
		{"DanglingStrict", `{"nodes": [{"id": "a"}], "links": [{"source": "a", "target": "z"}]}`, true, errors.ErrCodeInvalidGraph},
		{"DuplicateStrict", `{"nodes": [{"id": "a"}, {"id": "a"}]}`, true, errors.ErrCodeInvalidGraph},
		{"Malformed", `{"nodes": [`, false, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.strict)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Parse() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFileNotFound(t *testing.T) {
	_, err := ParseFile(t.TempDir()+"/missing.json", false)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ParseFile() error = %v, want %v", err, errors.ErrCodeFileNotFound)
	}
}
