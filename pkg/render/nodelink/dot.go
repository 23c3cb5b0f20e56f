package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Labels draws node labels inside the markers. When false, nodes are
	// small unlabeled points and the label is kept as a tooltip.
	Labels bool
}

// ToDOT converts a finished layout to Graphviz DOT with every node pinned at
// its simulated position. The y axis is flipped: the simulation uses screen
// coordinates, Graphviz points up.
//
// Nodes carrying a Kind get it as their DOT class so renderers can style
// node types.
func ToDOT(l graph.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	if opts.Labels {
		buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=10];\n")
	} else {
		buf.WriteString("  node [shape=point, width=0.12];\n")
	}
	buf.WriteString("  edge [color=\"#999999\"];\n")
	buf.WriteString("\n")

	for i := range l.Nodes {
		n := &l.Nodes[i]
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Links {
		fmt.Fprintf(&buf, "  %q -- %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(n *graph.Node, opts Options) []string {
	x := strconv.FormatFloat(n.X, 'f', 2, 64)
	y := strconv.FormatFloat(0-n.Y, 'f', 2, 64)
	attrs := []string{fmt.Sprintf("pos=\"%s,%s!\"", x, y)}

	label := n.DisplayLabel()
	if opts.Labels {
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
	} else {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", label))
	}
	if n.Kind != "" {
		attrs = append(attrs, fmt.Sprintf("class=%q", n.Kind))
	}
	if n.Pinned() {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// RenderSVG renders DOT produced by [ToDOT] to SVG using the Graphviz neato
// engine, which keeps the pinned positions.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.SetLayout(graphviz.NEATO).Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Render is ToDOT followed by RenderSVG.
func Render(ctx context.Context, l graph.Layout, opts Options) ([]byte, error) {
	return RenderSVG(ctx, ToDOT(l, opts))
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element with one that scales
// to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
