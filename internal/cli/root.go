package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
// The configuration file is loaded before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "forcegraph",
		Short: "Forcegraph lays out graphs with a force-directed simulation",
		Long: `Forcegraph computes force-directed layouts for node-link graphs.

Graphs are JSON documents with "nodes" and "links". Layouts can be computed
in batch, watched live in the terminal, rendered to DOT or SVG, or served
over HTTP as a stream of positions.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.LoadConfig(configPath, verbose)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/forcegraph/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Execute runs the forcegraph CLI, logging to w.
func Execute(ctx context.Context, w io.Writer, args []string) error {
	c := New(w, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
