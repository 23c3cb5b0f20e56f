package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

const testGraph = `{"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}], "links": [{"source": "a", "target": "b"}, {"source": "b", "target": "c"}]}`

// runCLI executes the root command with isolated config and cache homes.
func runCLI(t *testing.T, args ...string) (*CLI, string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var logs, out bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return c, out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	for _, name := range []string{"layout", "render", "watch", "serve", "cache", "completion"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
}

func TestRootCommandMissingConfig(t *testing.T) {
	_, _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.toml"), "cache", "path")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[simulation]
link_distance = 55

[cache]
backend = "none"

[log]
level = "warn"
format = "json"
`)

	c := New(&bytes.Buffer{}, LogInfo)
	if err := c.LoadConfig(path, false); err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if c.Config.Simulation.LinkDistance != 55 {
		t.Errorf("LinkDistance = %v, want 55", c.Config.Simulation.LinkDistance)
	}
	if c.Logger.GetLevel() != log.WarnLevel {
		t.Errorf("level = %v, want warn", c.Logger.GetLevel())
	}

	if err := c.LoadConfig(path, true); err != nil {
		t.Fatal(err)
	}
	if c.Logger.GetLevel() != log.DebugLevel {
		t.Errorf("verbose level = %v, want debug", c.Logger.GetLevel())
	}
}

func TestManagerIsShared(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	if c.Manager() != c.Manager() {
		t.Error("Manager() should return the same manager on every call")
	}
	if c.Manager().Alive() {
		t.Error("manager should not start a worker before it is needed")
	}
}
