// Package render groups the output renderers for finished layouts.
//
// The [nodelink] subpackage draws a layout as a node-link diagram through
// Graphviz, keeping the positions computed by the force simulation:
//
//	dot := nodelink.ToDOT(l, nodelink.Options{Labels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/forcegraph/pkg/render/nodelink
package render
