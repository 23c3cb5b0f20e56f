package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/config"
)

func TestCacheDirXDG(t *testing.T) {
	customCache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", customCache)

	c := New(&bytes.Buffer{}, LogInfo)
	dir, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, config.AppName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestCacheDirFromConfig(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	c.Config.Cache.Dir = "/srv/forcegraph/cache"

	dir, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != "/srv/forcegraph/cache" {
		t.Errorf("cacheDir() = %q, want the configured directory", dir)
	}
}

func TestNewCacheBackends(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	ctx := context.Background()

	tests := []struct {
		name    string
		backend string
		noCache bool
		want    string
	}{
		{"file", config.BackendFile, false, "*cache.FileCache"},
		{"none", config.BackendNone, false, "cache.NullCache"},
		{"disabled by flag", config.BackendFile, true, "cache.NullCache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&bytes.Buffer{}, LogInfo)
			c.Config.Cache.Backend = tt.backend

			got, err := c.newCache(ctx, tt.noCache)
			if err != nil {
				t.Fatalf("newCache() error: %v", err)
			}
			switch got.(type) {
			case *cache.FileCache:
				if tt.want != "*cache.FileCache" {
					t.Errorf("newCache() = %T, want %s", got, tt.want)
				}
			case cache.NullCache:
				if tt.want != "cache.NullCache" {
					t.Errorf("newCache() = %T, want %s", got, tt.want)
				}
			default:
				t.Errorf("newCache() = %T, want %s", got, tt.want)
			}
		})
	}
}

func TestNewKeyer(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	if k := c.newKeyer(); k != nil {
		t.Errorf("newKeyer() without prefix = %T, want nil", k)
	}

	c.Config.Cache.Prefix = "staging:"
	k := c.newKeyer()
	if k == nil {
		t.Fatal("newKeyer() with prefix returned nil")
	}
	key := k.LayoutKey("abc", cache.LayoutKeyOpts{Variant: "default"})
	if len(key) < len("staging:") || key[:len("staging:")] != "staging:" {
		t.Errorf("LayoutKey() = %q, want prefix %q", key, "staging:")
	}
}
