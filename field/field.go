// Package field samples scalar and vector signal grids over a surface's
// parametric domain. Fields are built once before a simulation run and
// shared read-only by every agent.
package field

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fenwick-cg/canopy/geom"
)

// degenerateRange is the span below which a field's min/max range is
// treated as collapsed and the field normalizes to all zeros.
const degenerateRange = 1e-12

// Scalar is an immutable grid of values in [0,1], one per discretized
// node of the parametric domain. Data is row-major: index = j*resU + i.
type Scalar struct {
	domain     geom.Domain
	resU, resV int
	data       []float64
}

// Resolution returns the grid dimensions (U, V).
func (f *Scalar) Resolution() (int, int) { return f.resU, f.resV }

// At returns the value stored at grid node (i, j).
func (f *Scalar) At(i, j int) float64 { return f.data[j*f.resU+i] }

// Sample returns the value of the nearest grid node to p. Sampling is
// deliberately nearest-neighbor rather than bilinear: the grids are dense
// relative to agent motion, and the downstream scatter consumer tolerates
// the resulting steps. Out-of-range coordinates clamp to the boundary node.
func (f *Scalar) Sample(p r2.Vec) float64 {
	i, j := nodeIndex(f.domain, f.resU, f.resV, p)
	return f.data[j*f.resU+i]
}

// Vector is an immutable grid of unit-length (or zero) direction vectors.
type Vector struct {
	domain     geom.Domain
	resU, resV int
	data       []r3.Vec
}

// Resolution returns the grid dimensions (U, V).
func (f *Vector) Resolution() (int, int) { return f.resU, f.resV }

// At returns the vector stored at grid node (i, j).
func (f *Vector) At(i, j int) r3.Vec { return f.data[j*f.resU+i] }

// Sample returns the vector of the nearest grid node to p, clamping
// out-of-range coordinates like Scalar.Sample.
func (f *Vector) Sample(p r2.Vec) r3.Vec {
	i, j := nodeIndex(f.domain, f.resU, f.resV, p)
	return f.data[j*f.resU+i]
}

// nodeIndex maps a continuous parametric coordinate to the nearest grid
// node, clamped to valid indices on each axis independently.
func nodeIndex(d geom.Domain, resU, resV int, p r2.Vec) (int, int) {
	i := int((p.X - d.U0) / d.SpanU() * float64(resU-1))
	j := int((p.Y - d.V0) / d.SpanV() * float64(resV-1))
	if i < 0 {
		i = 0
	} else if i >= resU {
		i = resU - 1
	}
	if j < 0 {
		j = 0
	} else if j >= resV {
		j = resV - 1
	}
	return i, j
}

// Bundle groups the fields consumed by agents during a run.
type Bundle struct {
	Curvature *Scalar // normalized Gaussian curvature
	SlopeMag  *Scalar // normalized tangential gravity magnitude
	SlopeDir  *Vector // unit downhill direction on the tangent plane
}

// validateGrid checks the shared sampling preconditions.
func validateGrid(resU, resV int) error {
	if resU < 2 || resV < 2 {
		return fmt.Errorf("field: resolution %dx%d below minimum 2x2", resU, resV)
	}
	return nil
}

// Curvature evaluates Gaussian curvature at every grid node and
// normalizes the result to [0,1] against the global min/max. A field with
// no curvature variation normalizes to all zeros.
func Curvature(s geom.Surface, dom geom.Domain, resU, resV int) (*Scalar, error) {
	if err := validateGrid(resU, resV); err != nil {
		return nil, err
	}

	f := &Scalar{domain: dom, resU: resU, resV: resV, data: make([]float64, resU*resV)}
	for j := 0; j < resV; j++ {
		v := dom.V0 + dom.SpanV()*float64(j)/float64(resV-1)
		for i := 0; i < resU; i++ {
			u := dom.U0 + dom.SpanU()*float64(i)/float64(resU-1)
			f.data[j*resU+i] = s.GaussianCurvature(u, v)
		}
	}

	normalize(f.data)
	return f, nil
}

// Slope projects gravity onto the local tangent plane at every grid node.
// The direction field stores the unit projection (zero at locally flat
// points); the magnitude field stores the projection norm, normalized
// globally like curvature.
func Slope(s geom.Surface, dom geom.Domain, resU, resV int, gravity r3.Vec) (*Scalar, *Vector, error) {
	if err := validateGrid(resU, resV); err != nil {
		return nil, nil, err
	}

	mag := &Scalar{domain: dom, resU: resU, resV: resV, data: make([]float64, resU*resV)}
	dir := &Vector{domain: dom, resU: resU, resV: resV, data: make([]r3.Vec, resU*resV)}

	for j := 0; j < resV; j++ {
		v := dom.V0 + dom.SpanV()*float64(j)/float64(resV-1)
		for i := 0; i < resU; i++ {
			u := dom.U0 + dom.SpanU()*float64(i)/float64(resU-1)

			n := s.Normal(u, v)
			tangential := r3.Sub(gravity, r3.Scale(r3.Dot(gravity, n), n))

			m := r3.Norm(tangential)
			idx := j*resU + i
			if m < degenerateRange {
				// Locally flat point: no downhill direction.
				continue
			}
			mag.data[idx] = m
			dir.data[idx] = r3.Scale(1/m, tangential)
		}
	}

	normalize(mag.data)
	return mag, dir, nil
}

// Build constructs the full field bundle for a surface over its domain.
func Build(s geom.Surface, dom geom.Domain, resU, resV int, gravity r3.Vec) (*Bundle, error) {
	curv, err := Curvature(s, dom, resU, resV)
	if err != nil {
		return nil, err
	}
	slopeMag, slopeDir, err := Slope(s, dom, resU, resV, gravity)
	if err != nil {
		return nil, err
	}
	return &Bundle{Curvature: curv, SlopeMag: slopeMag, SlopeDir: slopeDir}, nil
}

// normalize rescales values to [0,1] as (v-min)/(max-min). A degenerate
// range (max == min) yields all zeros rather than dividing by zero.
func normalize(data []float64) {
	if len(data) == 0 {
		return
	}
	min, max := data[0], data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	span := max - min
	if span <= degenerateRange {
		for i := range data {
			data[i] = 0
		}
		return
	}
	for i := range data {
		data[i] = (data[i] - min) / span
	}
}
