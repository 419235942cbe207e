// Package telemetry computes summary statistics over the agent scatter.
// The statistics feed the CLI progress log and the tuner fitness; they
// never influence the simulation itself.
package telemetry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/fenwick-cg/canopy/geom"
)

// ScatterStats summarizes the spatial distribution of a population in
// parametric space.
type ScatterStats struct {
	Step int `csv:"step"`

	// Coverage is the fraction of occupancy cells holding at least one
	// agent. 1.0 means the scatter touches the whole domain at the
	// chosen grid resolution.
	Coverage float64 `csv:"coverage"`

	// Nearest-neighbor spacing distribution.
	SpacingMean float64 `csv:"spacing_mean"`
	SpacingStd  float64 `csv:"spacing_std"`

	// Mean parametric speed at the sampled step.
	SpeedMean float64 `csv:"speed_mean"`
}

// SpacingCV returns the coefficient of variation of nearest-neighbor
// spacing. Lower values mean a more even scatter.
func (s ScatterStats) SpacingCV() float64 {
	if s.SpacingMean == 0 {
		return 0
	}
	return s.SpacingStd / s.SpacingMean
}

// Compute builds scatter statistics for the given positions and
// velocities. gridRes is the occupancy grid resolution per axis; values
// below 2 fall back to 2.
func Compute(step int, positions, velocities []r2.Vec, dom geom.Domain, gridRes int) ScatterStats {
	st := ScatterStats{Step: step}
	n := len(positions)
	if n == 0 {
		return st
	}
	if gridRes < 2 {
		gridRes = 2
	}

	// Occupancy coverage.
	occupied := make(map[int]struct{}, n)
	for _, p := range positions {
		i := cellOf(p.X, dom.U0, dom.SpanU(), gridRes)
		j := cellOf(p.Y, dom.V0, dom.SpanV(), gridRes)
		occupied[j*gridRes+i] = struct{}{}
	}
	st.Coverage = float64(len(occupied)) / float64(gridRes*gridRes)

	// Nearest-neighbor spacing. All-pairs is fine at scatter sizes.
	if n > 1 {
		spacings := make([]float64, 0, n)
		for i := range positions {
			best := math.Inf(1)
			for j := range positions {
				if i == j {
					continue
				}
				d := r2.Norm(r2.Sub(positions[i], positions[j]))
				if d < best {
					best = d
				}
			}
			spacings = append(spacings, best)
		}
		st.SpacingMean = stat.Mean(spacings, nil)
		st.SpacingStd = stat.StdDev(spacings, nil)
	}

	speeds := make([]float64, n)
	for i, v := range velocities {
		speeds[i] = r2.Norm(v)
	}
	st.SpeedMean = stat.Mean(speeds, nil)

	return st
}

// cellOf maps a coordinate to an occupancy cell index, clamped to the grid.
func cellOf(x, min, span float64, res int) int {
	i := int((x - min) / span * float64(res))
	if i < 0 {
		i = 0
	} else if i >= res {
		i = res - 1
	}
	return i
}
