package force

import "math"

// =============================================================================
// Link Force
// =============================================================================

// applyLinks pulls linked bodies toward LinkDistance. The correction is split
// by endpoint degree so that hubs move less than leaves, and uses the
// positions the bodies are about to reach (x+vx) to damp oscillation.
func (s *Simulation) applyLinks(alpha float64) {
	for range s.cfg.LinkIterations {
		for _, l := range s.links {
			src, tgt := &s.bodies[l.source], &s.bodies[l.target]

			x := tgt.x + tgt.vx - src.x - src.vx
			if x == 0 {
				x = s.jiggle()
			}
			y := tgt.y + tgt.vy - src.y - src.vy
			if y == 0 {
				y = s.jiggle()
			}

			d := math.Sqrt(x*x + y*y)
			d = (d - s.cfg.LinkDistance) / d * alpha * l.strength
			x *= d
			y *= d

			tgt.vx -= x * l.bias
			tgt.vy -= y * l.bias
			src.vx += x * (1 - l.bias)
			src.vy += y * (1 - l.bias)
		}
	}
}

// =============================================================================
// Many-Body Force
// =============================================================================

// applyCharge applies the pairwise inverse-distance force between every two
// bodies. Distances below ChargeDistanceMin are softened; pairs beyond
// ChargeDistanceMax (if set) do not interact.
func (s *Simulation) applyCharge(alpha float64) {
	minSq := s.cfg.ChargeDistanceMin * s.cfg.ChargeDistanceMin
	maxSq := math.Inf(1)
	if s.cfg.ChargeDistanceMax > 0 {
		maxSq = s.cfg.ChargeDistanceMax * s.cfg.ChargeDistanceMax
	}
	k := s.cfg.ChargeStrength * alpha

	for i := range s.bodies {
		bi := &s.bodies[i]
		for j := i + 1; j < len(s.bodies); j++ {
			bj := &s.bodies[j]

			x := bj.x - bi.x
			y := bj.y - bi.y
			l := x*x + y*y
			if l >= maxSq {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}

			w := k / l
			bi.vx += x * w
			bi.vy += y * w
			bj.vx -= x * w
			bj.vy -= y * w
		}
	}
}

// =============================================================================
// Centering Force
// =============================================================================

// applyCenter translates all bodies so that their centroid moves toward the
// anchor point. It shifts positions directly and leaves velocities alone,
// so the layout's shape is unaffected.
func (s *Simulation) applyCenter() {
	n := len(s.bodies)
	if n == 0 {
		return
	}
	var sx, sy float64
	for i := range s.bodies {
		sx += s.bodies[i].x
		sy += s.bodies[i].y
	}
	sx = (sx/float64(n) - s.cfg.CenterX) * s.cfg.CenterStrength
	sy = (sy/float64(n) - s.cfg.CenterY) * s.cfg.CenterStrength
	for i := range s.bodies {
		s.bodies[i].x -= sx
		s.bodies[i].y -= sy
	}
}

// =============================================================================
// Collision Force
// =============================================================================

// applyCollide separates bodies whose circles of radius CollideRadius
// overlap, looking ahead to x+vx like the link force. Every body shares one
// radius, so each side of a colliding pair takes half the correction.
func (s *Simulation) applyCollide() {
	r := s.cfg.CollideRadius
	reach := 2 * r
	reachSq := reach * reach
	strength := s.cfg.CollideStrength

	for range s.cfg.CollideIterations {
		for i := range s.bodies {
			bi := &s.bodies[i]
			xi := bi.x + bi.vx
			yi := bi.y + bi.vy
			for j := i + 1; j < len(s.bodies); j++ {
				bj := &s.bodies[j]

				x := xi - bj.x - bj.vx
				y := yi - bj.y - bj.vy
				l := x*x + y*y
				if l >= reachSq {
					continue
				}
				if x == 0 {
					x = s.jiggle()
					l += x * x
				}
				if y == 0 {
					y = s.jiggle()
					l += y * y
				}

				l = math.Sqrt(l)
				l = (reach - l) / l * strength
				x *= l
				y *= l

				bi.vx += x * 0.5
				bi.vy += y * 0.5
				bj.vx -= x * 0.5
				bj.vy -= y * 0.5
			}
		}
	}
}
