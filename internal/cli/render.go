package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// renderFormats are the formats the render command accepts. JSON is left
// out: the input already is the layout.
var renderFormats = map[string]bool{
	pipeline.FormatDOT: true,
	pipeline.FormatSVG: true,
}

// validateRenderFormats checks that every requested format can be rendered
// from a layout file.
func validateRenderFormats(formats []string) error {
	for _, f := range formats {
		if !renderFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'svg' or 'dot')", f)
		}
	}
	return nil
}

// renderCommand creates the render command for turning layouts into drawings.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		formats string
		labels  bool
	)

	cmd := &cobra.Command{
		Use:   "render <graph.layout.json>",
		Short: "Render a layout to SVG or DOT",
		Long: `Render a layout file produced by 'layout' to SVG (via Graphviz, with node
positions pinned) or to DOT source. "-" reads the layout from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := parseFormats(formats, pipeline.FormatSVG)
			if err := validateRenderFormats(list); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], pipeline.Options{Formats: list, Labels: labels}, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formats, "format", "f", "", "output format(s): svg (default), dot (comma-separated)")
	cmd.Flags().BoolVar(&labels, "labels", false, "draw node labels instead of points")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats([]string{pipeline.FormatSVG, pipeline.FormatDOT}))

	return cmd
}

// runRender reads the layout, renders every format and writes the files.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	opts.Logger = c.Logger
	prog := newProgress(c.Logger)
	artifacts, err := pipeline.RenderFromLayoutData(ctx, data, opts)
	if err != nil {
		return err
	}
	c.Logger.Debug("rendered", "input", input, "formats", opts.Formats, "elapsed", prog.elapsed())

	files, err := writeArtifacts(artifacts, opts.Formats, input, output)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}
	printSuccess("Rendered %s", input)
	for _, f := range files {
		printFile(f)
	}
	return nil
}

// readInput reads a whole file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
