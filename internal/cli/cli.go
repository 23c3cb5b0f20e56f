// Package cli implements the forcegraph command-line interface.
package cli

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/config"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

// =============================================================================
// Constants
// =============================================================================

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	managerOnce sync.Once
	manager     *worker.Manager
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// LoadConfig reads the configuration file at path (the default location when
// empty) and applies its log settings. verbose forces debug logging.
func (c *CLI) LoadConfig(path string, verbose bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Config = cfg

	level, _ := cfg.Log.ParseLevel()
	if verbose {
		level = LogDebug
	}
	formatter, _ := cfg.Log.ParseFormatter()
	c.SetLogLevel(level)
	c.Logger.SetFormatter(formatter)
	return nil
}

// Manager returns the worker manager shared by every command of this
// process. It is created on first use.
func (c *CLI) Manager() *worker.Manager {
	c.managerOnce.Do(func() {
		c.manager = worker.NewManager(worker.Options{
			MaxRuns: c.Config.Server.MaxRuns,
			Logger:  c.Logger,
		})
	})
	return c.manager
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over the shared manager, backed by the
// configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, c.newKeyer(), c.Manager(), c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{URL: c.Config.Cache.RedisURL})
	}

	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newKeyer scopes cache keys when a prefix is configured. A nil keyer
// selects the runner's default.
func (c *CLI) newKeyer() cache.Keyer {
	if c.Config.Cache.Prefix == "" {
		return nil
	}
	return cache.NewScopedKeyer(nil, c.Config.Cache.Prefix)
}

// cacheDir returns the configured file cache directory, or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return config.CacheDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s, fallback string) []string {
	if s == "" {
		return []string{fallback}
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
