package force

import (
	"math"
	"time"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultLinkDistance is the rest length of a link.
	DefaultLinkDistance = 100.0

	// DefaultChargeStrength is the many-body strength; negative repels.
	DefaultChargeStrength = -30.0

	// DefaultCollideRadius is the per-node collision radius.
	DefaultCollideRadius = 20.0

	// DefaultAlphaMin is the alpha below which a run counts as converged.
	DefaultAlphaMin = 0.001

	// DefaultVelocityDecay is the fraction of velocity lost per tick.
	DefaultVelocityDecay = 0.4

	// DefaultSeed seeds the jiggle source for reproducible layouts.
	DefaultSeed = uint64(42)

	// TreeTimeout is the wall-clock limit used by the tree layout variant.
	TreeTimeout = 3 * time.Second

	// convergenceTicks is the number of ticks the default decay needs to
	// cool from 1 to AlphaMin.
	convergenceTicks = 300

	// initialRadius and initialAngle place unpositioned nodes on a
	// phyllotaxis spiral.
	initialRadius = 10.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// DefaultAlphaDecay returns the decay that cools alpha from 1 to alphaMin
// in 300 ticks.
func DefaultAlphaDecay(alphaMin float64) float64 {
	return 1 - math.Pow(alphaMin, 1.0/convergenceTicks)
}

// =============================================================================
// Config
// =============================================================================

// Config holds every tunable of a simulation run. Start from [DefaultConfig]
// and override fields; zero is a meaningful value for most of them (a zero
// ChargeStrength disables repulsion, a zero CollideRadius disables collision).
type Config struct {
	// Link force
	LinkDistance   float64 `json:"link_distance" toml:"link_distance"`
	LinkStrength   float64 `json:"link_strength,omitempty" toml:"link_strength"` // 0 = degree-based default
	LinkIterations int     `json:"link_iterations" toml:"link_iterations"`

	// Many-body force
	ChargeStrength    float64 `json:"charge_strength" toml:"charge_strength"`
	ChargeDistanceMin float64 `json:"charge_distance_min" toml:"charge_distance_min"`
	ChargeDistanceMax float64 `json:"charge_distance_max,omitempty" toml:"charge_distance_max"` // 0 = unbounded

	// Centering force
	CenterX        float64 `json:"center_x" toml:"center_x"`
	CenterY        float64 `json:"center_y" toml:"center_y"`
	CenterStrength float64 `json:"center_strength" toml:"center_strength"`

	// Collision force
	CollideRadius     float64 `json:"collide_radius" toml:"collide_radius"`
	CollideStrength   float64 `json:"collide_strength" toml:"collide_strength"`
	CollideIterations int     `json:"collide_iterations" toml:"collide_iterations"`

	// Cooling
	Alpha         float64 `json:"alpha" toml:"alpha"`
	AlphaMin      float64 `json:"alpha_min" toml:"alpha_min"`
	AlphaDecay    float64 `json:"alpha_decay" toml:"alpha_decay"`
	AlphaTarget   float64 `json:"alpha_target" toml:"alpha_target"`
	VelocityDecay float64 `json:"velocity_decay" toml:"velocity_decay"`

	// Termination
	MaxTicks int           `json:"max_ticks,omitempty" toml:"max_ticks"` // 0 = no limit
	Timeout  time.Duration `json:"timeout,omitempty" toml:"timeout"`     // 0 = no limit

	Seed uint64 `json:"seed" toml:"seed"`
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		LinkDistance:      DefaultLinkDistance,
		LinkIterations:    1,
		ChargeStrength:    DefaultChargeStrength,
		ChargeDistanceMin: 1,
		CenterStrength:    1,
		CollideRadius:     DefaultCollideRadius,
		CollideStrength:   1,
		CollideIterations: 1,
		Alpha:             1,
		AlphaMin:          DefaultAlphaMin,
		AlphaDecay:        DefaultAlphaDecay(DefaultAlphaMin),
		VelocityDecay:     DefaultVelocityDecay,
		Seed:              DefaultSeed,
	}
}

// TreeConfig returns the parameters of the tree layout variant: the default
// physics, forcibly stopped after [TreeTimeout].
func TreeConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = TreeTimeout
	return cfg
}

// Validate checks parameter ranges. Errors carry code INVALID_CONFIG.
func (c Config) Validate() error {
	switch {
	case c.LinkDistance < 0:
		return invalid("link distance must be >= 0, got %v", c.LinkDistance)
	case c.LinkStrength < 0:
		return invalid("link strength must be >= 0, got %v", c.LinkStrength)
	case c.LinkIterations < 1:
		return invalid("link iterations must be >= 1, got %d", c.LinkIterations)
	case c.ChargeDistanceMin < 0:
		return invalid("charge distance min must be >= 0, got %v", c.ChargeDistanceMin)
	case c.ChargeDistanceMax < 0:
		return invalid("charge distance max must be >= 0, got %v", c.ChargeDistanceMax)
	case c.ChargeDistanceMax > 0 && c.ChargeDistanceMax < c.ChargeDistanceMin:
		return invalid("charge distance max %v below min %v", c.ChargeDistanceMax, c.ChargeDistanceMin)
	case c.CenterStrength < 0 || c.CenterStrength > 1:
		return invalid("center strength must be in [0,1], got %v", c.CenterStrength)
	case c.CollideRadius < 0:
		return invalid("collide radius must be >= 0, got %v", c.CollideRadius)
	case c.CollideStrength < 0 || c.CollideStrength > 1:
		return invalid("collide strength must be in [0,1], got %v", c.CollideStrength)
	case c.CollideIterations < 1:
		return invalid("collide iterations must be >= 1, got %d", c.CollideIterations)
	case c.Alpha < 0 || c.Alpha > 1:
		return invalid("alpha must be in [0,1], got %v", c.Alpha)
	case c.AlphaMin <= 0 || c.AlphaMin >= 1:
		return invalid("alpha min must be in (0,1), got %v", c.AlphaMin)
	case c.AlphaDecay <= 0 || c.AlphaDecay >= 1:
		return invalid("alpha decay must be in (0,1), got %v", c.AlphaDecay)
	case c.AlphaTarget < 0 || c.AlphaTarget > 1:
		return invalid("alpha target must be in [0,1], got %v", c.AlphaTarget)
	case c.VelocityDecay < 0 || c.VelocityDecay > 1:
		return invalid("velocity decay must be in [0,1], got %v", c.VelocityDecay)
	case c.MaxTicks < 0:
		return invalid("max ticks must be >= 0, got %d", c.MaxTicks)
	case c.Timeout < 0:
		return invalid("timeout must be >= 0, got %v", c.Timeout)
	}
	for _, v := range []float64{c.LinkDistance, c.LinkStrength, c.ChargeStrength, c.CenterX, c.CenterY, c.CollideRadius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("parameters must be finite")
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}
