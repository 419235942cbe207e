// Package surface builds heightmap-displaced surfaces over the unit
// parametric domain. A surface is a planar grid of physical size Size,
// displaced vertically by a sine-cosine heightmap with optional layered
// simplex noise, and evaluated analytically at continuous UV coordinates.
package surface

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"
)

// derivEps is the finite-difference step for surface partials, chosen
// small relative to the unit UV domain but large enough to stay clear of
// float64 cancellation.
const derivEps = 1e-4

// Params describes a heightmap surface.
type Params struct {
	// Size is the physical extent of the surface in model units. The
	// embedded point at (u, v) is (u*Size, v*Size, h(u,v)).
	Size float64

	// Sine-cosine heightmap terms.
	Amp   float64 // displacement amplitude
	Freq  float64 // periods across the domain
	Phase float64 // phase offset in radians

	// Optional simplex noise layered on top of the base heightmap.
	NoiseAmp     float64
	NoiseFreq    float64
	NoiseOctaves int
	Seed         int64
}

// Heightmap is a geom.Surface displaced from a planar grid.
type Heightmap struct {
	p     Params
	noise opensimplex.Noise
}

// New creates a heightmap surface. Noise is only evaluated when both
// NoiseAmp and NoiseOctaves are set.
func New(p Params) *Heightmap {
	if p.Size <= 0 {
		p.Size = 1
	}
	s := &Heightmap{p: p}
	if p.NoiseAmp != 0 && p.NoiseOctaves > 0 {
		s.noise = opensimplex.NewNormalized(p.Seed)
	}
	return s
}

// Flat returns a planar surface of the given size. Useful as a degenerate
// baseline: curvature and slope vanish everywhere.
func Flat(size float64) *Heightmap {
	return New(Params{Size: size})
}

// Height returns the scalar displacement at (u, v).
func (s *Heightmap) Height(u, v float64) float64 {
	p := &s.p
	h := p.Amp *
		math.Sin(p.Freq*math.Pi*u+p.Phase) *
		math.Cos(p.Freq*math.Pi*v+p.Phase)
	if s.noise != nil {
		h += p.NoiseAmp * s.octaves(u, v)
	}
	return h
}

// octaves layers simplex noise, halving amplitude and doubling frequency
// per octave.
func (s *Heightmap) octaves(u, v float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	freq := s.p.NoiseFreq
	if freq <= 0 {
		freq = 1
	}

	for i := 0; i < s.p.NoiseOctaves; i++ {
		total += s.noise.Eval2(u*freq, v*freq) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		freq *= 2
	}

	return total / maxVal
}

// Evaluate returns the embedded 3D point at (u, v).
func (s *Heightmap) Evaluate(u, v float64) r3.Vec {
	return r3.Vec{
		X: u * s.p.Size,
		Y: v * s.p.Size,
		Z: s.Height(u, v),
	}
}

// TangentFrame returns the surface partials dS/du and dS/dv at (u, v).
// The height function extends smoothly beyond the unit domain, so central
// differences are valid at the boundary.
func (s *Heightmap) TangentFrame(u, v float64) (tu, tv r3.Vec) {
	hu := (s.Height(u+derivEps, v) - s.Height(u-derivEps, v)) / (2 * derivEps)
	hv := (s.Height(u, v+derivEps) - s.Height(u, v-derivEps)) / (2 * derivEps)
	tu = r3.Vec{X: s.p.Size, Y: 0, Z: hu}
	tv = r3.Vec{X: 0, Y: s.p.Size, Z: hv}
	return tu, tv
}

// Normal returns the unit surface normal at (u, v).
func (s *Heightmap) Normal(u, v float64) r3.Vec {
	tu, tv := s.TangentFrame(u, v)
	n := r3.Cross(tu, tv)
	if r3.Norm(n) == 0 {
		return r3.Vec{Z: 1}
	}
	return r3.Unit(n)
}

// GaussianCurvature returns the Gaussian curvature at (u, v), computed
// from the first and second fundamental forms with finite-difference
// height derivatives.
func (s *Heightmap) GaussianCurvature(u, v float64) float64 {
	e := derivEps
	h00 := s.Height(u, v)
	hu := (s.Height(u+e, v) - s.Height(u-e, v)) / (2 * e)
	hv := (s.Height(u, v+e) - s.Height(u, v-e)) / (2 * e)
	huu := (s.Height(u+e, v) - 2*h00 + s.Height(u-e, v)) / (e * e)
	hvv := (s.Height(u, v+e) - 2*h00 + s.Height(u, v-e)) / (e * e)
	huv := (s.Height(u+e, v+e) - s.Height(u+e, v-e) -
		s.Height(u-e, v+e) + s.Height(u-e, v-e)) / (4 * e * e)

	sz := s.p.Size
	tu := r3.Vec{X: sz, Y: 0, Z: hu}
	tv := r3.Vec{X: 0, Y: sz, Z: hv}
	n := r3.Cross(tu, tv)
	nn := r3.Norm(n)
	if nn == 0 {
		return 0
	}
	n = r3.Scale(1/nn, n)

	// First fundamental form.
	ef := r3.Dot(tu, tu)
	ff := r3.Dot(tu, tv)
	gf := r3.Dot(tv, tv)

	// Second fundamental form. Second partials of S have no XY component.
	lf := huu * n.Z
	mf := huv * n.Z
	nf := hvv * n.Z

	denom := ef*gf - ff*ff
	if denom == 0 {
		return 0
	}
	return (lf*nf - mf*mf) / denom
}
