// Package config loads forcegraph settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/forcegraph/config.toml (falling back to
// ~/.config/forcegraph/config.toml) unless a path is given explicitly. Every
// key is optional; missing keys keep the values of [Default].
//
//	[simulation]
//	link_distance = 80
//	charge_strength = -60
//	timeout = "10s"
//
//	[server]
//	addr = ":8080"
//	max_runs = 64
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[log]
//	level = "debug"
//	format = "json"
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/force"
)

// AppName names the configuration and cache directories.
const AppName = "forcegraph"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Log formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// Config is the root of the configuration file.
type Config struct {
	Simulation force.Config `toml:"simulation"`
	Server     Server       `toml:"server"`
	Cache      Cache        `toml:"cache"`
	Log        Log          `toml:"log"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxRuns         int           `toml:"max_runs"` // concurrent simulations, 0 = unlimited
	MaxBodyBytes    int64         `toml:"max_body_bytes"`
}

// Cache selects and configures the layout cache.
type Cache struct {
	Backend  string `toml:"backend"` // file, redis or none
	Dir      string `toml:"dir"`     // file backend; empty = XDG cache dir
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"` // key prefix, e.g. per deployment
}

// Log configures the logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Simulation: force.DefaultConfig(),
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		Cache: Cache{Backend: BackendFile},
		Log:   Log{Level: "info", Format: FormatText},
	}
}

// Load reads the file at path over the defaults. An empty path means the
// default location, which may be absent; an explicit path must exist.
// Unknown keys are rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis requires redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Server.MaxRuns < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server max_runs must be >= 0, got %d", c.Server.MaxRuns)
	}
	if c.Server.MaxBodyBytes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server max_body_bytes must be >= 0, got %d", c.Server.MaxBodyBytes)
	}
	if _, err := c.Log.ParseLevel(); err != nil {
		return err
	}
	if _, err := c.Log.ParseFormatter(); err != nil {
		return err
	}
	return nil
}

// ParseLevel returns the configured log level.
func (l Log) ParseLevel() (log.Level, error) {
	if l.Level == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(l.Level)
	if err != nil {
		return log.InfoLevel, errors.Wrap(errors.ErrCodeInvalidConfig, err, "log level")
	}
	return lvl, nil
}

// ParseFormatter returns the configured log formatter.
func (l Log) ParseFormatter() (log.Formatter, error) {
	switch l.Format {
	case "", FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	}
	return log.TextFormatter, errors.New(errors.ErrCodeInvalidConfig, "unknown log format %q", l.Format)
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the configuration file path using the XDG standard
// (~/.config/forcegraph/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the cache directory using the XDG standard
// (~/.cache/forcegraph/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
