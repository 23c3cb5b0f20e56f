// Package nodelink renders finished force layouts as node-link diagrams.
//
// # Overview
//
// The force simulation already decides where every node goes, so this
// package does no layout of its own. [ToDOT] writes Graphviz DOT with each
// node pinned (pos="x,y!") at its simulated coordinate, and [RenderSVG]
// runs the neato engine, which honors pinned positions and only routes the
// edges.
//
// # Usage
//
//	l, _ := graph.ReadLayoutFile("graph.layout.json")
//	dot := nodelink.ToDOT(l, nodelink.Options{Labels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools (neato -n2 keeps the positions).
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
