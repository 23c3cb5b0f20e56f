// Package pipeline provides the layout pipeline shared by the CLI and the
// HTTP API.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Layout: run a force simulation on the shared worker until it ends
//  2. Render: turn the finished layout into artifacts (JSON, DOT, SVG)
//
// Both stages are cached. Layouts are keyed by the content hash of the input
// graph plus the simulation parameters; artifacts by the hash of the layout
// plus the render options.
//
// # Usage
//
//	m := worker.NewManager(worker.Options{})
//	runner := pipeline.NewRunner(c, nil, m, logger)
//	result, err := runner.Execute(ctx, g, pipeline.Options{
//	    Config:  force.DefaultConfig(),
//	    Formats: []string{"json", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// Layout variants. The tree variant is the default physics stopped after
// [force.TreeTimeout].
const (
	VariantDefault = "default"
	VariantTree    = "tree"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// ValidVariants is the set of supported layout variants.
var ValidVariants = map[string]bool{
	VariantDefault: true,
	VariantTree:    true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
type Options struct {
	// Layout options
	GraphID string        `json:"graph_id,omitempty"` // generated when empty
	Variant string        `json:"variant,omitempty"`
	Config  force.Config  `json:"config"`
	Timeout time.Duration `json:"timeout,omitempty"`
	Refresh bool          `json:"refresh,omitempty"` // skip cache reads

	// Render options
	Formats []string `json:"formats,omitempty"`
	Labels  bool     `json:"labels,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger       `json:"-"`
	OnTick func(worker.Tick) `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	GraphID   string
	GraphHash string
	Layout    graph.Layout
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVariant checks that a layout variant is valid.
func ValidateVariant(variant string) error {
	if !ValidVariants[variant] {
		return fmt.Errorf("invalid variant: %q (must be one of: default, tree)", variant)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLayoutDefaults fills in the variant, the zero config and the logger.
// The tree variant applies [force.TreeTimeout] unless a timeout is set.
func (o *Options) SetLayoutDefaults() {
	if o.Variant == "" {
		o.Variant = VariantDefault
	}
	if o.Config == (force.Config{}) {
		o.Config = force.DefaultConfig()
	}
	if o.Variant == VariantTree && o.Timeout == 0 && o.Config.Timeout == 0 {
		o.Timeout = force.TreeTimeout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateVariant(o.Variant); err != nil {
		return err
	}
	if o.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %v", o.Timeout)
	}
	return o.Config.Validate()
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// EffectiveConfig returns the simulation parameters with the run timeout
// applied.
func (o *Options) EffectiveConfig() force.Config {
	cfg := o.Config
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	return cfg
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Variant: o.Variant,
		Params:  o.EffectiveConfig(),
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Labels: o.Labels,
	}
}
