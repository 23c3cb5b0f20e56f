package force

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Reason describes why a run stopped producing ticks.
type Reason string

const (
	ReasonConverged Reason = "converged"  // alpha fell below AlphaMin
	ReasonStopped   Reason = "stopped"    // cancelled or replaced by the caller
	ReasonTimeout   Reason = "timeout"    // Config.Timeout elapsed
	ReasonTickLimit Reason = "tick-limit" // Config.MaxTicks reached
)

// Frame is the state of a run after one tick. Nodes is a snapshot owned by
// the receiver.
type Frame struct {
	Tick  int
	Alpha float64
	Nodes []graph.Node
}

// body is the mutable physics state of one node.
type body struct {
	x, y   float64
	vx, vy float64
	fx, fy float64
	pinX   bool
	pinY   bool
}

// link is a resolved edge between two bodies.
type link struct {
	source, target int
	strength       float64
	bias           float64
}

// Simulation relaxes the positions of one graph. It is not safe for
// concurrent use; the worker owns each simulation on a single goroutine.
type Simulation struct {
	cfg     Config
	nodes   []graph.Node
	bodies  []body
	links   []link
	edges   []graph.Edge
	skipped []graph.Edge
	alpha   float64
	ticks   int
	rng     *rand.Rand
}

// New prepares a simulation over the given nodes and links. The inputs are
// copied; the caller's slices are never written. Links whose endpoints are
// not in nodes are skipped.
func New(nodes []graph.Node, links []graph.Edge, cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:    cfg,
		nodes:  graph.CloneNodes(nodes),
		bodies: make([]body, len(nodes)),
		alpha:  cfg.Alpha,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	s.initBodies()
	s.initLinks(links)
	return s, nil
}

func (s *Simulation) initBodies() {
	for i := range s.nodes {
		n := &s.nodes[i]
		b := &s.bodies[i]
		if n.FX != nil {
			b.pinX, b.fx = true, *n.FX
		}
		if n.FY != nil {
			b.pinY, b.fy = true, *n.FY
		}

		switch {
		case b.pinX || b.pinY:
			b.x, b.y = n.X, n.Y
			if b.pinX {
				b.x = b.fx
			}
			if b.pinY {
				b.y = b.fy
			}
		case n.Placed():
			b.x, b.y = n.X, n.Y
		default:
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			b.x, b.y = r*math.Cos(a), r*math.Sin(a)
		}
	}
}

func (s *Simulation) initLinks(edges []graph.Edge) {
	index := make(map[string]int, len(s.nodes))
	for i := range s.nodes {
		index[s.nodes[i].ID] = i
	}

	degree := make([]int, len(s.nodes))
	for _, e := range edges {
		src, okS := index[e.Source]
		tgt, okT := index[e.Target]
		if !okS || !okT {
			s.skipped = append(s.skipped, e)
			continue
		}
		s.edges = append(s.edges, e)
		s.links = append(s.links, link{source: src, target: tgt})
		degree[src]++
		degree[tgt]++
	}

	for i := range s.links {
		l := &s.links[i]
		ds, dt := float64(degree[l.source]), float64(degree[l.target])
		l.bias = ds / (ds + dt)
		if s.cfg.LinkStrength > 0 {
			l.strength = s.cfg.LinkStrength
		} else {
			l.strength = 1 / math.Min(ds, dt)
		}
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Alpha returns the current cooling parameter.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks returns the number of completed ticks.
func (s *Simulation) Ticks() int { return s.ticks }

// Config returns the parameters the simulation was created with.
func (s *Simulation) Config() Config { return s.cfg }

// Edges returns the links that take part in the simulation.
func (s *Simulation) Edges() []graph.Edge { return graph.CloneEdges(s.edges) }

// Skipped returns the links that were dropped for naming unknown nodes.
func (s *Simulation) Skipped() []graph.Edge { return graph.CloneEdges(s.skipped) }

// Nodes returns a snapshot of the nodes with their current positions.
func (s *Simulation) Nodes() []graph.Node {
	out := graph.CloneNodes(s.nodes)
	for i := range out {
		out[i].Place(s.bodies[i].x, s.bodies[i].y)
	}
	return out
}

// Frame returns a snapshot of the current tick.
func (s *Simulation) Frame() Frame {
	return Frame{Tick: s.ticks, Alpha: s.alpha, Nodes: s.Nodes()}
}

// Converged reports whether alpha has cooled below AlphaMin.
func (s *Simulation) Converged() bool { return s.alpha < s.cfg.AlphaMin }

// Done reports whether the run has converged or hit its tick limit.
// Wall-clock limits are enforced by [Simulation.Run] and by the worker.
func (s *Simulation) Done() bool {
	_, done := s.Finished()
	return done
}

// Finished returns the termination reason once the run has converged or hit
// its tick limit.
func (s *Simulation) Finished() (Reason, bool) {
	if s.Converged() {
		return ReasonConverged, true
	}
	if s.cfg.MaxTicks > 0 && s.ticks >= s.cfg.MaxTicks {
		return ReasonTickLimit, true
	}
	return "", false
}

// =============================================================================
// Stepping
// =============================================================================

// Step advances the simulation by one tick. It reports whether the run can
// take further ticks; stepping a finished simulation is a no-op.
func (s *Simulation) Step() bool {
	if s.Done() {
		return false
	}
	s.alpha += (s.cfg.AlphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLinks(s.alpha)
	if s.cfg.ChargeStrength != 0 {
		s.applyCharge(s.alpha)
	}
	if s.cfg.CenterStrength > 0 {
		s.applyCenter()
	}
	if s.cfg.CollideRadius > 0 && s.cfg.CollideStrength > 0 {
		s.applyCollide()
	}

	keep := 1 - s.cfg.VelocityDecay
	for i := range s.bodies {
		b := &s.bodies[i]
		if b.pinX {
			b.x, b.vx = b.fx, 0
		} else {
			b.vx *= keep
			b.x += b.vx
		}
		if b.pinY {
			b.y, b.vy = b.fy, 0
		} else {
			b.vy *= keep
			b.y += b.vy
		}
	}

	s.ticks++
	return !s.Done()
}

// Run steps until the simulation converges, reaches its tick limit, runs
// past Config.Timeout, or ctx is done. emit, if non-nil, receives a frame
// after every tick; a non-nil error from emit ends the run as stopped and
// is returned.
func (s *Simulation) Run(ctx context.Context, emit func(Frame) error) (Reason, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	for {
		if reason, done := s.Finished(); done {
			return reason, nil
		}
		if err := ctx.Err(); err != nil {
			if stderrors.Is(err, context.DeadlineExceeded) {
				return ReasonTimeout, nil
			}
			return ReasonStopped, nil
		}
		s.Step()
		if emit != nil {
			if err := emit(s.Frame()); err != nil {
				return ReasonStopped, err
			}
		}
	}
}

// Deadline returns the wall-clock instant after which a run started at
// start must stop, or the zero time if the config has no timeout.
func (c Config) Deadline(start time.Time) time.Time {
	if c.Timeout <= 0 {
		return time.Time{}
	}
	return start.Add(c.Timeout)
}

// jiggle returns a tiny random offset used to separate coincident points.
func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
