// Package force implements the iterative force-directed simulation that lays
// out graphs for the layout worker.
//
// # Overview
//
// A [Simulation] holds one body per graph node and relaxes their 2-D
// positions tick by tick under four additive forces:
//
//   - Link: pulls the endpoints of every link toward a rest distance
//   - Charge: every node pair repels with strength inversely related to distance
//   - Center: translates the layout so its centroid sits on an anchor point
//   - Collide: pushes apart nodes whose radii overlap
//
// Forces adjust velocities; after all forces ran, velocities decay and
// positions integrate. Pinned nodes (FX/FY set) are held in place.
//
// # Cooling
//
// Each tick moves alpha toward AlphaTarget by AlphaDecay:
//
//	alpha += (AlphaTarget - alpha) * AlphaDecay
//
// Force magnitudes scale with alpha, so the layout "cools" and the run
// converges once alpha drops below AlphaMin. With the defaults this takes
// 300 ticks.
//
// # Running
//
// [Simulation.Step] advances one tick and is what the worker uses to
// interleave many runs on one goroutine. [Simulation.Run] loops until
// convergence, cancellation, timeout or the tick limit, handing a [Frame]
// to a callback after every tick:
//
//	sim, err := force.New(g.Nodes, g.Links, force.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	reason, err := sim.Run(ctx, func(f force.Frame) error {
//	    fmt.Println(f.Tick, f.Alpha)
//	    return nil
//	})
//
// Cancellation is cooperative: the context is checked once per tick, never
// in the middle of one.
//
// # Input Tolerance
//
// Links naming unknown nodes contribute no force and are reported by
// [Simulation.Skipped]. Duplicate node identifiers produce an undefined
// layout; the last duplicate owns the identifier for link resolution.
package force
