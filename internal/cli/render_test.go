package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/forcegraph/pkg/graph"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     []string
	}{
		{"empty uses fallback", "", "svg", []string{"svg"}},
		{"single format", "dot", "svg", []string{"dot"}},
		{"multiple formats", "json,dot,svg", "json", []string{"json", "dot", "svg"}},
		{"spaces and empty items", " svg , ,dot", "json", []string{"svg", "dot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input, tt.fallback)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestValidateRenderFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"svg", []string{"svg"}, false},
		{"dot", []string{"dot"}, false},
		{"both", []string{"svg", "dot"}, false},
		{"json is the input", []string{"json"}, true},
		{"unknown", []string{"pdf"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRenderFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRenderFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
		})
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		input   string
		output  string
		want    map[string]string
	}{
		{
			name:    "next to input",
			formats: []string{"json"},
			input:   "data/graph.json",
			want:    map[string]string{"json": "data/graph.layout.json"},
		},
		{
			name:    "render from layout",
			formats: []string{"svg", "dot"},
			input:   "data/graph.layout.json",
			want:    map[string]string{"svg": "data/graph.svg", "dot": "data/graph.dot"},
		},
		{
			name:    "explicit single output",
			formats: []string{"svg"},
			input:   "graph.layout.json",
			output:  "out/picture.svg",
			want:    map[string]string{"svg": "out/picture.svg"},
		},
		{
			name:    "explicit base for several formats",
			formats: []string{"json", "svg"},
			input:   "graph.json",
			output:  "out/result.svg",
			want:    map[string]string{"json": "out/result.layout.json", "svg": "out/result.svg"},
		},
		{
			name:    "stdin",
			formats: []string{"json", "dot"},
			input:   "-",
			want:    map[string]string{"json": "graph.layout.json", "dot": "graph.dot"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.formats, tt.input, tt.output)
			if len(got) != len(tt.want) {
				t.Fatalf("outputPaths() = %v, want %v", got, tt.want)
			}
			for f, p := range tt.want {
				if got[f] != p {
					t.Errorf("outputPaths()[%q] = %q, want %q", f, got[f], p)
				}
			}
		})
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	l := graph.Layout{
		Nodes:  []graph.Node{{ID: "a", X: 0, Y: 0}, {ID: "b", X: 30, Y: 40}},
		Links:  []graph.Edge{{Source: "a", Target: "b"}},
		Reason: "converged",
	}
	input := filepath.Join(dir, "g.layout.json")
	if err := graph.WriteLayoutFile(l, input); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCLI(t, "render", input, "-f", "dot", "--labels"); err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "g.dot"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	dot := string(data)
	for _, want := range []string{"graph G {", `"a" -- "b"`, `label="b"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("output missing %q:\n%s", want, dot)
		}
	}
}

func TestRenderCommandRejectsJSON(t *testing.T) {
	if _, _, err := runCLI(t, "render", "whatever.layout.json", "-f", "json"); err == nil {
		t.Error("render -f json should fail")
	}
}
