package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

// layoutFlags holds the non-simulation flags of the layout command.
type layoutFlags struct {
	output  string
	formats string
	labels  bool
	strict  bool
	noCache bool
	jobs    int
}

// layoutResult is what one input produced.
type layoutResult struct {
	input string
	files []string
	stats layoutStats
	warns []string
}

// layoutCommand creates the layout command for computing force-directed layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		lf  layoutFlags
		sim simFlags
	)

	cmd := &cobra.Command{
		Use:   "layout <graph.json>...",
		Short: "Compute force-directed layouts for one or more graphs",
		Long: `Compute force-directed layouts for one or more graphs.

Each input is a JSON graph with "nodes" and "links" ("-" reads stdin). The
simulation runs until it converges, hits --max-ticks or --timeout. The result
is written next to the input as <input>.layout.json, plus one file per extra
--format (dot, svg).

Several inputs are laid out concurrently on a single simulation worker.
Converged and tick-limited layouts are cached, so re-running with the same
graph and parameters is instant.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lf.output != "" && len(args) > 1 {
				return fmt.Errorf("--output needs a single input, got %d", len(args))
			}
			opts := sim.options(cmd.Flags(), c.Config.Simulation)
			opts.Formats = parseFormats(lf.formats, pipeline.FormatJSON)
			opts.Labels = lf.labels
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), args, opts, lf)
		},
	}

	cmd.Flags().StringVarP(&lf.output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&lf.formats, "format", "f", "", "output format(s): json (default), dot, svg (comma-separated)")
	cmd.Flags().BoolVar(&lf.labels, "labels", false, "draw node labels (dot, svg)")
	cmd.Flags().BoolVar(&lf.strict, "strict", false, "reject duplicate nodes and dangling links")
	cmd.Flags().BoolVar(&lf.noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVarP(&lf.jobs, "jobs", "j", 0, "maximum concurrent layouts (0 = all at once)")
	sim.register(cmd.Flags())
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats([]string{pipeline.FormatJSON, pipeline.FormatDOT, pipeline.FormatSVG}))

	return cmd
}

// runLayout lays out every input on one shared runner and reports the results.
func (c *CLI) runLayout(ctx context.Context, inputs []string, opts pipeline.Options, lf layoutFlags) error {
	runner, err := c.newRunner(ctx, lf.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if len(inputs) == 1 {
		spinner := newSpinnerWithContext(ctx, "Simulating "+inputs[0])
		spinner.Start()
		opts.OnTick = func(t worker.Tick) {
			spinner.Update(fmt.Sprintf("Simulating %s · tick %d · alpha %.4f", inputs[0], t.Seq, t.Alpha))
		}
		res, err := c.layoutFile(ctx, runner, inputs[0], opts, lf)
		if err != nil {
			spinner.StopWithError("Layout failed")
			return err
		}
		spinner.Stop()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(res.files) == 0 {
			// Written to stdout; keep it clean.
			return nil
		}
		report(res)
		if i := slices.Index(opts.Formats, pipeline.FormatJSON); i >= 0 && !slices.Contains(opts.Formats, pipeline.FormatSVG) {
			printNewline()
			printNextStep("Render", "forcegraph render "+res.files[i])
		}
		return nil
	}

	prog := newProgress(c.Logger)
	results := make([]layoutResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	if lf.jobs > 0 {
		g.SetLimit(lf.jobs)
	}
	for i, input := range inputs {
		g.Go(func() error {
			res, err := c.layoutFile(gctx, runner, input, opts, lf)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			c.Logger.Debug("layout finished", "input", input, "reason", res.stats.reason, "ticks", res.stats.ticks)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		report(res)
	}
	prog.done("Laid out graphs", "count", len(inputs))
	return nil
}

// layoutFile parses, lays out and renders a single input.
func (c *CLI) layoutFile(ctx context.Context, runner *pipeline.Runner, input string, opts pipeline.Options, lf layoutFlags) (layoutResult, error) {
	g, err := pipeline.ParseFile(input, lf.strict)
	if err != nil {
		return layoutResult{}, err
	}
	c.Logger.Debug("parsed graph", "input", input, "nodes", len(g.Nodes), "links", len(g.Links), "positioned", g.HasPositions())

	opts.Logger = c.Logger
	result, err := runner.Execute(ctx, g, opts)
	if err != nil {
		return layoutResult{}, err
	}

	files, err := writeArtifacts(result.Artifacts, opts.Formats, input, lf.output)
	if err != nil {
		return layoutResult{}, err
	}

	res := layoutResult{
		input: input,
		files: files,
		stats: layoutStats{
			nodes:  result.Stats.NodeCount,
			edges:  result.Stats.EdgeCount,
			ticks:  result.Layout.Ticks,
			reason: result.Layout.Reason,
			cached: result.CacheInfo.LayoutHit,
		},
	}
	if n := len(result.Layout.Skipped); n > 0 {
		res.warns = append(res.warns, fmt.Sprintf("%d links reference unknown nodes and were skipped", n))
	}
	if result.Layout.Reason == "timeout" {
		res.warns = append(res.warns, fmt.Sprintf("simulation timed out after %d ticks; the layout may not be settled", result.Layout.Ticks))
	}
	return res, nil
}

func report(res layoutResult) {
	printSuccess("Laid out %s", res.input)
	for _, f := range res.files {
		printFile(f)
	}
	printStats(res.stats)
	for _, w := range res.warns {
		printWarning("%s", w)
	}
}

// =============================================================================
// Output Paths
// =============================================================================

// artifactExt maps each format to the suffix appended to the base path.
var artifactExt = map[string]string{
	pipeline.FormatJSON: ".layout.json",
	pipeline.FormatDOT:  ".dot",
	pipeline.FormatSVG:  ".svg",
}

// basePath derives the base output path from the output and input paths by
// stripping a known artifact suffix, or any extension.
func basePath(output, input string) string {
	switch {
	case output != "":
		return trimArtifactExt(output)
	case input == "-":
		return "graph"
	}
	return trimArtifactExt(input)
}

func trimArtifactExt(p string) string {
	for _, ext := range []string{".layout.json", ".dot", ".svg"} {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return strings.TrimSuffix(p, filepath.Ext(p))
}

// outputPaths returns the file each format is written to. A single format
// with an explicit output goes exactly there.
func outputPaths(formats []string, input, output string) map[string]string {
	paths := make(map[string]string, len(formats))
	if output != "" && len(formats) == 1 {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		paths[f] = base + artifactExt[f]
	}
	return paths
}

// writeArtifacts writes each rendered format and returns the paths in format
// order. A layout read from stdin with a single format and no --output goes
// to stdout.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	if input == "-" && output == "" && len(formats) == 1 {
		_, err := os.Stdout.Write(artifacts[formats[0]])
		return nil, err
	}

	paths := outputPaths(formats, input, output)
	files := make([]string, 0, len(formats))
	for _, f := range formats {
		p := paths[f]
		if err := os.WriteFile(p, artifacts[f], 0o644); err != nil {
			return files, fmt.Errorf("write %s: %w", p, err)
		}
		files = append(files, p)
	}
	return files, nil
}
