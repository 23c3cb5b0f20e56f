package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

// =============================================================================
// Layout - Finished Simulation Result
// =============================================================================

// Layout is the serialization format for the final state of a simulation run.
// It is what the CLI writes to disk, what the cache stores, and what the
// renderer reads.
type Layout struct {
	GraphID string  `json:"graph_id,omitempty"`
	Nodes   []Node  `json:"nodes"`
	Links   []Edge  `json:"links"`
	Ticks   int     `json:"ticks"`
	Alpha   float64 `json:"alpha"`
	Reason  string  `json:"reason"` // converged, stopped, timeout, tick-limit
	Bounds  Bounds  `json:"bounds"`

	// Skipped lists links whose endpoints were missing from the node set.
	Skipped []Edge `json:"skipped,omitempty"`
}

// Bounds is the axis-aligned bounding box of a set of node positions.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// ComputeBounds returns the bounding box of the given nodes.
// An empty slice yields the zero Bounds.
func ComputeBounds(nodes []Node) Bounds {
	if len(nodes) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for i := range nodes {
		b.MinX = math.Min(b.MinX, nodes[i].X)
		b.MinY = math.Min(b.MinY, nodes[i].Y)
		b.MaxX = math.Max(b.MaxX, nodes[i].X)
		b.MaxY = math.Max(b.MaxY, nodes[i].Y)
	}
	return b
}

// Graph returns the layout's nodes and links as a Graph, e.g. to seed a new
// run from previous positions.
func (l *Layout) Graph() *Graph {
	return &Graph{Nodes: CloneNodes(l.Nodes), Links: CloneEdges(l.Links)}
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	if l.Nodes == nil {
		l.Nodes = []Node{}
	}
	if l.Links == nil {
		l.Links = []Edge{}
	}
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
// Validates that a termination reason is present.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "unmarshal layout")
	}
	if l.Reason == "" {
		return Layout{}, errors.New(errors.ErrCodeInvalidInput, "layout must contain a termination reason")
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Layout{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
	}
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
