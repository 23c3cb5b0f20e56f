package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	info := Get()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestTemplate(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v0.9.0"
	tmpl := Template()
	if !strings.HasPrefix(tmpl, "{{.Name}} version v0.9.0") {
		t.Errorf("Template() = %q", tmpl)
	}
	if !strings.Contains(String(), "version: v0.9.0") {
		t.Errorf("String() = %q", String())
	}
}
