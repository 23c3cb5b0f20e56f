package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/internal/metrics"
	"github.com/matzehuels/forcegraph/pkg/server"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts over HTTP",
		Long: `Run the HTTP API. POST a graph to /api/layout to receive the simulation as
server-sent events, or to /api/render for a finished layout, DOT or SVG.
All requests share one simulation worker, which exists only while a request
needs it.

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), noCache, !noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (overrides [server] addr)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the layout cache for /api/render")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache, withMetrics bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	cfg := c.Config.Server
	opts := server.Options{
		Addr:            cfg.Addr,
		ReadTimeout:     cfg.ReadTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		Simulation:      c.Config.Simulation,
		Logger:          c.Logger,
	}

	if withMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		col, err := metrics.New(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		col.Install()
		opts.Metrics = col.Handler()
	}

	c.Logger.Info("starting server",
		"addr", cfg.Addr,
		"cache", c.Config.Cache.Backend,
		"max_runs", cfg.MaxRuns,
		"metrics", withMetrics)

	return server.New(c.Manager(), runner, opts).ListenAndServe(ctx)
}
