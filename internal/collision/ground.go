// Package collision resolves particle contact with the ground plane y = 0.
package collision

import "gonum.org/v1/gonum/spatial/r2"

// Contact summarizes the ground hits of one step.
type Contact struct {
	Hits int
	// MaxPenetration is the deepest pre-correction depth below y = 0,
	// or 0 when nothing crossed.
	MaxPenetration float64
}

// Ground is the impenetrable plane y = 0. Restitution is the fraction of the
// normal velocity kept, sign-reversed, after a bounce.
type Ground struct {
	Restitution float64
}

// Resolve detects particles strictly below the ground, measures their depth,
// then reflects their vertical velocity and moves them back onto the plane.
// A particle resting exactly at y = 0 is not a hit. Horizontal components are
// untouched and a particle bounces at most once per call.
func (g Ground) Resolve(pos, vel []r2.Vec) Contact {
	var c Contact
	for i := range pos {
		if !(pos[i].Y < 0) {
			continue
		}

		// depth is read before the correction below
		depth := -pos[i].Y
		if depth > c.MaxPenetration {
			c.MaxPenetration = depth
		}
		c.Hits++

		vel[i].Y *= -g.Restitution
		pos[i].Y = 0
	}
	return c
}
