package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

// =============================================================================
// Graph - Layout Input
// =============================================================================

// Graph is the canonical serialization format for graphs submitted for layout.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Edge `json:"links"`
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of links.
func (g *Graph) EdgeCount() int { return len(g.Links) }

// Clone returns a deep copy of the graph. Node metadata maps are copied
// shallowly; pins are copied by value.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		Nodes: CloneNodes(g.Nodes),
		Links: CloneEdges(g.Links),
	}
	return out
}

// UnmarshalJSON accepts "edges" as an alias for "links", as written by tick
// events and by some exporters.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var aux struct {
		Nodes []Node `json:"nodes"`
		Links []Edge `json:"links"`
		Edges []Edge `json:"edges"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	g.Nodes = aux.Nodes
	g.Links = aux.Links
	if g.Links == nil {
		g.Links = aux.Edges
	}
	return nil
}

// HasPositions reports whether any node carries a starting position.
func (g *Graph) HasPositions() bool {
	for i := range g.Nodes {
		if g.Nodes[i].Placed() {
			return true
		}
	}
	return false
}

// Validate checks for duplicate node identifiers and dangling links.
// The returned error has code INVALID_GRAPH and names the first problem found.
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i := range g.Nodes {
		id := g.Nodes[i].ID
		if id == "" {
			return errors.New(errors.ErrCodeInvalidGraph, "node at index %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return errors.New(errors.ErrCodeInvalidGraph, "duplicate node id %q", id)
		}
		seen[id] = struct{}{}
	}
	for _, e := range g.Links {
		if _, ok := seen[e.Source]; !ok {
			return errors.New(errors.ErrCodeInvalidGraph, "link %s references unknown source %q", e.ID(), e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return errors.New(errors.ErrCodeInvalidGraph, "link %s references unknown target %q", e.ID(), e.Target)
		}
	}
	return nil
}

// =============================================================================
// Node - Positioned Vertex
// =============================================================================

// Node is a graph vertex. X and Y are owned by the simulation while a run is
// active. FX and FY pin the node to a fixed coordinate when set.
type Node struct {
	ID    string         `json:"id"`
	Label string         `json:"label,omitempty"`
	Kind  string         `json:"kind,omitempty"` // Node type (document, tag, ...)
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	FX    *float64       `json:"fx,omitempty"`
	FY    *float64       `json:"fy,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`

	pos position
}

// position records whether a node's coordinates were given. Nodes built in
// code without Place are judged by their coordinates.
type position uint8

const (
	positionUnknown position = iota
	positionGiven
	positionMissing
)

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Pinned reports whether both coordinates of the node are fixed.
func (n *Node) Pinned() bool { return n.FX != nil && n.FY != nil }

// Place sets the node's position and marks it as given, so the simulation
// starts it there even at the origin.
func (n *Node) Place(x, y float64) {
	n.X, n.Y, n.pos = x, y, positionGiven
}

// Placed reports whether the node has a given starting position. A node
// decoded without both "x" and "y" is unplaced; one at the origin is placed
// only when the position was given explicitly.
func (n *Node) Placed() bool {
	switch n.pos {
	case positionGiven:
		return true
	case positionMissing:
		return false
	}
	return n.X != 0 || n.Y != 0
}

// Pin fixes the node at (x, y).
func (n *Node) Pin(x, y float64) {
	n.FX, n.FY = &x, &y
}

// UnmarshalJSON accepts string or numeric identifiers. A missing or null
// "x" or "y" leaves the node unplaced.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
		X  *float64        `json:"x"`
		Y  *float64        `json:"y"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := decodeID(aux.ID)
	if err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	*n = Node(aux.plain)
	n.ID = id
	if aux.X != nil {
		n.X = *aux.X
	}
	if aux.Y != nil {
		n.Y = *aux.Y
	}
	n.pos = positionMissing
	if aux.X != nil && aux.Y != nil {
		n.pos = positionGiven
	}
	return nil
}

// CloneNodes deep-copies a node slice.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		if n.FX != nil {
			fx := *n.FX
			out[i].FX = &fx
		}
		if n.FY != nil {
			fy := *n.FY
			out[i].FY = &fy
		}
		if n.Meta != nil {
			out[i].Meta = maps.Clone(n.Meta)
		}
	}
	return out
}

// =============================================================================
// Edge - Link Between Nodes
// =============================================================================

// Edge links two nodes by identifier. It never holds node values.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ID returns the derived identifier "source-target".
func (e Edge) ID() string { return e.Source + "-" + e.Target }

// UnmarshalJSON accepts string or numeric endpoints, and node objects whose
// "id" names the endpoint.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var aux struct {
		Source json.RawMessage `json:"source"`
		Target json.RawMessage `json:"target"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	src, err := decodeEndpoint(aux.Source)
	if err != nil {
		return fmt.Errorf("link source: %w", err)
	}
	dst, err := decodeEndpoint(aux.Target)
	if err != nil {
		return fmt.Errorf("link target: %w", err)
	}
	e.Source, e.Target = src, dst
	return nil
}

// CloneEdges copies an edge slice.
func CloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// =============================================================================
// Internal Helpers
// =============================================================================

// decodeID normalizes a JSON string or number into a string identifier.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var f json.Number
		if err := json.Unmarshal(raw, &f); err != nil {
			return "", fmt.Errorf("unsupported identifier %s", raw)
		}
		if i, err := f.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return f.String(), nil
	}
}

// decodeEndpoint decodes an identifier or a node object carrying one.
func decodeEndpoint(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		return decodeID(obj.ID)
	}
	return decodeID(raw)
}
