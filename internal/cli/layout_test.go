package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

func TestLayoutCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "chain.json", testGraph)

	c, _, err := runCLI(t, "layout", input, "--max-ticks", "5", "--seed", "7")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}

	l, err := graph.ReadLayoutFile(filepath.Join(dir, "chain.layout.json"))
	if err != nil {
		t.Fatalf("read layout: %v", err)
	}
	if l.Reason != string(force.ReasonTickLimit) || l.Ticks != 5 {
		t.Errorf("layout = %s after %d ticks, want tick-limit after 5", l.Reason, l.Ticks)
	}
	if len(l.Nodes) != 3 || len(l.Links) != 2 {
		t.Errorf("layout has %d nodes and %d links, want 3 and 2", len(l.Nodes), len(l.Links))
	}
	if c.Manager().Alive() || c.Manager().RefCount() != 0 {
		t.Error("worker should be released once the layout is written")
	}
}

func TestLayoutCommandManyInputs(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeFile(t, dir, "one.json", testGraph),
		writeFile(t, dir, "two.json", `{"nodes": [{"id": 1}, {"id": 2}], "links": [{"source": 1, "target": 2}]}`),
		writeFile(t, dir, "three.json", `{"nodes": [{"id": "solo"}], "links": []}`),
	}

	args := append([]string{"layout", "--max-ticks", "10", "-f", "json,dot", "-j", "2"}, inputs...)
	if _, _, err := runCLI(t, args...); err != nil {
		t.Fatalf("layout: %v", err)
	}

	for _, name := range []string{"one", "two", "three"} {
		l, err := graph.ReadLayoutFile(filepath.Join(dir, name+".layout.json"))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if l.Ticks != 10 {
			t.Errorf("%s: ticks = %d, want 10", name, l.Ticks)
		}
		dot, err := os.ReadFile(filepath.Join(dir, name+".dot"))
		if err != nil || !strings.HasPrefix(string(dot), "graph G {") {
			t.Errorf("%s.dot = %q, %v", name, dot, err)
		}
	}
}

func TestLayoutCommandErrors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", testGraph)
	b := writeFile(t, dir, "b.json", testGraph)
	dangling := writeFile(t, dir, "dangling.json", `{"nodes": [{"id": "a"}], "links": [{"source": "a", "target": "ghost"}]}`)

	tests := []struct {
		name string
		args []string
	}{
		{"output with two inputs", []string{"layout", a, b, "-o", "x.json"}},
		{"unknown format", []string{"layout", a, "-f", "pdf"}},
		{"missing input", []string{"layout", filepath.Join(dir, "absent.json")}},
		{"strict dangling link", []string{"layout", dangling, "--strict", "--max-ticks", "1"}},
		{"invalid parameter", []string{"layout", a, "--link-distance", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := runCLI(t, tt.args...); err == nil {
				t.Errorf("%v should fail", tt.args)
			}
		})
	}
}

func TestSimFlagsOverrideOnlyChanged(t *testing.T) {
	var sim simFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	sim.register(fs)
	if err := fs.Parse([]string{"--charge-strength", "-10", "--tree"}); err != nil {
		t.Fatal(err)
	}

	base := force.DefaultConfig()
	base.LinkDistance = 55 // from the config file

	opts := sim.options(fs, base)
	if opts.Config.ChargeStrength != -10 {
		t.Errorf("ChargeStrength = %v, want -10", opts.Config.ChargeStrength)
	}
	if opts.Config.LinkDistance != 55 {
		t.Errorf("LinkDistance = %v, want the config value 55", opts.Config.LinkDistance)
	}
	if opts.Variant != pipeline.VariantTree {
		t.Errorf("Variant = %q, want %q", opts.Variant, pipeline.VariantTree)
	}
}

func TestLayoutStatsString(t *testing.T) {
	s := layoutStats{nodes: 3, edges: 2, ticks: 12, reason: "converged", cached: true}.String()
	for _, want := range []string{"3 nodes", "2 edges", "converged after 12 ticks", iconCached} {
		if !strings.Contains(s, want) {
			t.Errorf("stats line %q missing %q", s, want)
		}
	}
	if strings.Contains(layoutStats{}.String(), iconCached) {
		t.Error("uncached stats should not say cached")
	}
}
