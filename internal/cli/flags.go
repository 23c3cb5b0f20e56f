package cli

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// simFlags are the simulation parameters that can be set on the command
// line. Only flags the user changed override the configuration file.
type simFlags struct {
	tree           bool
	timeout        time.Duration
	maxTicks       int
	seed           uint64
	linkDistance   float64
	chargeStrength float64
	collideRadius  float64
	alphaDecay     float64
	velocityDecay  float64
}

func (f *simFlags) register(fs *pflag.FlagSet) {
	d := force.DefaultConfig()
	fs.BoolVar(&f.tree, "tree", false, "use the tree variant (stops after "+force.TreeTimeout.String()+")")
	fs.DurationVar(&f.timeout, "timeout", 0, "stop the simulation after this long (0 = no limit)")
	fs.IntVar(&f.maxTicks, "max-ticks", d.MaxTicks, "stop after this many ticks (0 = no limit)")
	fs.Uint64Var(&f.seed, "seed", d.Seed, "seed for the initial jitter")
	fs.Float64Var(&f.linkDistance, "link-distance", d.LinkDistance, "target link length")
	fs.Float64Var(&f.chargeStrength, "charge-strength", d.ChargeStrength, "many-body strength (negative repels)")
	fs.Float64Var(&f.collideRadius, "collide-radius", d.CollideRadius, "node collision radius")
	fs.Float64Var(&f.alphaDecay, "alpha-decay", d.AlphaDecay, "cooling rate per tick")
	fs.Float64Var(&f.velocityDecay, "velocity-decay", d.VelocityDecay, "velocity friction per tick")
}

// apply overlays the changed flags onto base.
func (f *simFlags) apply(fs *pflag.FlagSet, base force.Config) force.Config {
	cfg := base
	if fs.Changed("max-ticks") {
		cfg.MaxTicks = f.maxTicks
	}
	if fs.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fs.Changed("link-distance") {
		cfg.LinkDistance = f.linkDistance
	}
	if fs.Changed("charge-strength") {
		cfg.ChargeStrength = f.chargeStrength
	}
	if fs.Changed("collide-radius") {
		cfg.CollideRadius = f.collideRadius
	}
	if fs.Changed("alpha-decay") {
		cfg.AlphaDecay = f.alphaDecay
	}
	if fs.Changed("velocity-decay") {
		cfg.VelocityDecay = f.velocityDecay
	}
	return cfg
}

// options builds layout pipeline options from the flags and base config.
func (f *simFlags) options(fs *pflag.FlagSet, base force.Config) pipeline.Options {
	opts := pipeline.Options{
		Variant: pipeline.VariantDefault,
		Config:  f.apply(fs, base),
		Timeout: f.timeout,
	}
	if f.tree {
		opts.Variant = pipeline.VariantTree
	}
	return opts
}
