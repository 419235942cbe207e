// Package agent implements surface-bound point agents that move in the
// parametric domain of a surface, steered by precomputed geometric fields
// and local flocking rules. An agent is a plain data record; steering is
// computed against a frozen population snapshot so that per-step results
// do not depend on iteration order.
package agent

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fenwick-cg/canopy/field"
	"github.com/fenwick-cg/canopy/geom"
)

// distEpsilon floors squared distances in the separation rule so that
// coincident agents never produce an unbounded force.
const distEpsilon = 1e-9

// spawnVelFraction sizes initial velocity components relative to the
// domain span.
const spawnVelFraction = 0.01

// Weights scales the individual steering contributions.
type Weights struct {
	Curvature  float64
	Slope      float64
	Separation float64
	Cohesion   float64
	Alignment  float64
}

// Agent is a single point agent on a surface. Pos and Vel live in
// parametric (UV) space; Embedded caches the 3D surface position at Pos.
// The domain, field bundle, and surface references are shared and
// read-only; an agent never mutates them.
type Agent struct {
	Pos      r2.Vec
	Vel      r2.Vec
	Embedded r3.Vec

	dom    geom.Domain
	fields *field.Bundle
	surf   geom.Surface
}

// Spawn creates an agent at a uniform random position inside the domain
// with a small random initial velocity. Randomness comes exclusively from
// rng so that identically seeded populations are identical.
func Spawn(dom geom.Domain, surf geom.Surface, fields *field.Bundle, rng *rand.Rand) Agent {
	pos := r2.Vec{
		X: dom.U0 + rng.Float64()*dom.SpanU(),
		Y: dom.V0 + rng.Float64()*dom.SpanV(),
	}
	vel := r2.Vec{
		X: (rng.Float64()*2 - 1) * spawnVelFraction * dom.SpanU(),
		Y: (rng.Float64()*2 - 1) * spawnVelFraction * dom.SpanV(),
	}
	return Agent{
		Pos:      pos,
		Vel:      vel,
		Embedded: surf.Evaluate(pos.X, pos.Y),
		dom:      dom,
		fields:   fields,
		surf:     surf,
	}
}

// CurvatureForce samples the curvature field at the agent's position.
// Curvature contributes no directional bias; it only damps speed. The
// returned force is always zero, paired with a multiplicative scale
// 1 - curvature applied later in Steer.
func (a *Agent) CurvatureForce() (r2.Vec, float64) {
	c := a.fields.Curvature.Sample(a.Pos)
	return r2.Vec{}, 1 - c
}

// SlopeForce samples the slope fields at the agent's position and returns
// the downhill steering contribution in UV space.
func (a *Agent) SlopeForce() r2.Vec {
	m := a.fields.SlopeMag.Sample(a.Pos)
	d := a.fields.SlopeDir.Sample(a.Pos)
	return r2.Vec{X: d.X * m, Y: d.Y * m}
}

// SeparationForce pushes the agent away from nearby neighbors. The
// contribution of each neighbor scales with the inverse square of its
// distance, floored by distEpsilon. Empty neighbor sets yield zero.
func (a *Agent) SeparationForce(neighbors []*Agent) r2.Vec {
	var steer r2.Vec
	for _, n := range neighbors {
		away := a.Pos.Sub(n.Pos)
		d2 := r2.Norm2(away)
		if d2 < distEpsilon {
			d2 = distEpsilon
		}
		steer = steer.Add(away.Scale(1 / d2))
	}
	return steer
}

// CohesionForce returns the unit vector from the agent toward the
// arithmetic mean of neighbor positions, or zero when there are no
// neighbors or the agent already sits at the centroid.
func (a *Agent) CohesionForce(neighbors []*Agent) r2.Vec {
	if len(neighbors) == 0 {
		return r2.Vec{}
	}
	var center r2.Vec
	for _, n := range neighbors {
		center = center.Add(n.Pos)
	}
	center = center.Scale(1 / float64(len(neighbors)))

	toward := center.Sub(a.Pos)
	if r2.Norm(toward) == 0 {
		return r2.Vec{}
	}
	return r2.Unit(toward)
}

// AlignmentForce returns the unit vector of the mean neighbor velocity,
// or zero when there are no neighbors or the mean velocity vanishes.
func (a *Agent) AlignmentForce(neighbors []*Agent) r2.Vec {
	if len(neighbors) == 0 {
		return r2.Vec{}
	}
	var avg r2.Vec
	for _, n := range neighbors {
		avg = avg.Add(n.Vel)
	}
	avg = avg.Scale(1 / float64(len(neighbors)))

	if r2.Norm(avg) == 0 {
		return r2.Vec{}
	}
	return r2.Unit(avg)
}

// SteerWith combines field and flock forces into a new velocity without
// mutating the agent. The composition order matters: curvature damping
// scales the carried-over velocity before the slope and flock terms are
// added, so damping never attenuates the current step's contributions.
func (a *Agent) SteerWith(neighbors []*Agent, w Weights, maxSpeed float64) r2.Vec {
	// Curvature has no directional term; its weighted force is always zero.
	curvForce, speedScale := a.CurvatureForce()
	v := a.Vel.Add(curvForce.Scale(w.Curvature))
	v = v.Scale(speedScale)

	v = v.Add(a.SlopeForce().Scale(w.Slope))

	if len(neighbors) > 0 {
		v = v.Add(a.SeparationForce(neighbors).Scale(w.Separation))
		v = v.Add(a.CohesionForce(neighbors).Scale(w.Cohesion))
		v = v.Add(a.AlignmentForce(neighbors).Scale(w.Alignment))
	}

	if speed := r2.Norm(v); speed > maxSpeed {
		v = v.Scale(maxSpeed / speed)
	}
	return v
}

// Steer computes the agent's next velocity against a frozen population
// snapshot, searching neighbors within radius by all-pairs scan. The
// agent at index self is excluded from its own neighborhood.
func (a *Agent) Steer(snapshot []Agent, self int, radius float64, w Weights, maxSpeed float64) r2.Vec {
	var brute BruteIndex
	neighbors := brute.Neighbors(nil, snapshot, self, radius)
	return a.SteerWith(neighbors, w, maxSpeed)
}

// Update advances the agent by its current velocity, clamping each
// position component independently to the domain. The velocity is left
// unchanged, so an agent at a boundary keeps pushing against it. The
// cached embedded position is re-evaluated at the new coordinate.
func (a *Agent) Update() {
	a.Pos = a.dom.Clamp(a.Pos.Add(a.Vel))
	a.Embedded = a.surf.Evaluate(a.Pos.X, a.Pos.Y)
}

// EmbeddedVelocity pushes the parametric velocity forward through the
// surface tangent frame, yielding the 3D offset the agent covers in one
// step to first order.
func (a *Agent) EmbeddedVelocity() r3.Vec {
	tu, tv := a.surf.TangentFrame(a.Pos.X, a.Pos.Y)
	return tu.Scale(a.Vel.X).Add(tv.Scale(a.Vel.Y))
}

// Speed returns the parametric velocity magnitude.
func (a *Agent) Speed() float64 {
	return math.Hypot(a.Vel.X, a.Vel.Y)
}
