package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/render/nodelink"
)

// Render generates output artifacts for a finished layout in the requested
// formats. The DOT source is built once and shared by the dot and svg
// outputs.
func Render(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = graph.MarshalLayout(l)
		case FormatDOT:
			if dot == "" {
				dot = nodelink.ToDOT(l, nodelinkOptions(opts))
			}
			data = []byte(dot)
		case FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(l, nodelinkOptions(opts))
			}
			data, err = nodelink.RenderSVG(ctx, dot)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// RenderFromLayoutData renders output from serialized layout data, such as a
// layout file written by an earlier run.
func RenderFromLayoutData(ctx context.Context, layoutData []byte, opts Options) (map[string][]byte, error) {
	parsed, err := graph.UnmarshalLayout(layoutData)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return Render(ctx, parsed, opts)
}

func nodelinkOptions(opts Options) nodelink.Options {
	return nodelink.Options{Labels: opts.Labels}
}
