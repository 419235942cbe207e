// Package geom defines the parametric domain and the surface evaluation
// contract shared by the field sampler and the agent simulation.
package geom

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Domain is an axis-aligned rectangle [U0,U1] x [V0,V1] in parametric space.
// Invariant: U0 < U1 and V0 < V1.
type Domain struct {
	U0, U1 float64
	V0, V1 float64
}

// NewDomain creates a domain, failing on degenerate or inverted bounds.
func NewDomain(u0, u1, v0, v1 float64) (Domain, error) {
	if u0 >= u1 {
		return Domain{}, fmt.Errorf("geom: invalid U domain [%g, %g]", u0, u1)
	}
	if v0 >= v1 {
		return Domain{}, fmt.Errorf("geom: invalid V domain [%g, %g]", v0, v1)
	}
	return Domain{U0: u0, U1: u1, V0: v0, V1: v1}, nil
}

// UnitDomain returns the [0,1] x [0,1] domain used by reparameterized surfaces.
func UnitDomain() Domain {
	return Domain{U0: 0, U1: 1, V0: 0, V1: 1}
}

// SpanU returns the extent of the domain along U.
func (d Domain) SpanU() float64 { return d.U1 - d.U0 }

// SpanV returns the extent of the domain along V.
func (d Domain) SpanV() float64 { return d.V1 - d.V0 }

// Contains reports whether p lies inside the domain, bounds inclusive.
func (d Domain) Contains(p r2.Vec) bool {
	return p.X >= d.U0 && p.X <= d.U1 && p.Y >= d.V0 && p.Y <= d.V1
}

// Clamp limits each component of p to the domain bounds independently.
func (d Domain) Clamp(p r2.Vec) r2.Vec {
	if p.X < d.U0 {
		p.X = d.U0
	} else if p.X > d.U1 {
		p.X = d.U1
	}
	if p.Y < d.V0 {
		p.Y = d.V0
	} else if p.Y > d.V1 {
		p.Y = d.V1
	}
	return p
}

// Surface evaluates a parametric surface at UV coordinates. Implementations
// are stateless with respect to queries: every method may be called
// concurrently once the surface is constructed.
type Surface interface {
	// Evaluate returns the embedded 3D point at (u, v).
	Evaluate(u, v float64) r3.Vec
	// Normal returns the unit surface normal at (u, v).
	Normal(u, v float64) r3.Vec
	// TangentFrame returns the surface partials dS/du and dS/dv at (u, v).
	// The partials are not normalized; they push parametric displacements
	// forward into the embedding.
	TangentFrame(u, v float64) (tu, tv r3.Vec)
	// GaussianCurvature returns the Gaussian curvature at (u, v).
	GaussianCurvature(u, v float64) float64
}
