package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/config"
)

func TestCachePathCommand(t *testing.T) {
	_, out, err := runCLI(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got := strings.TrimSpace(out); filepath.Base(got) != config.AppName {
		t.Errorf("cache path = %q, want a directory named %q", got, config.AppName)
	}
}

func TestCacheClearCommand(t *testing.T) {
	cacheHome := t.TempDir()
	configHome := t.TempDir()
	dir := filepath.Join(cacheHome, config.AppName)

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"layout:a", "layout:b", "artifact:c"} {
		if err := fc.Set(ctx, key, []byte(`{}`), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	c := New(&strings.Builder{}, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	t.Setenv("XDG_CONFIG_HOME", configHome)
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	for _, key := range []string{"layout:a", "layout:b", "artifact:c"} {
		if _, ok, _ := fc.Get(ctx, key); ok {
			t.Errorf("entry %q survived cache clear", key)
		}
	}
}

func TestCacheClearEmpty(t *testing.T) {
	if _, _, err := runCLI(t, "cache", "clear"); err != nil {
		t.Errorf("cache clear on a missing directory: %v", err)
	}
}
