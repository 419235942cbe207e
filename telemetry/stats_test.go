package telemetry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/fenwick-cg/canopy/geom"
)

func TestComputeEmpty(t *testing.T) {
	st := Compute(3, nil, nil, geom.UnitDomain(), 4)
	if st.Step != 3 {
		t.Errorf("Step = %d, want 3", st.Step)
	}
	if st.Coverage != 0 || st.SpacingMean != 0 || st.SpeedMean != 0 {
		t.Errorf("empty population produced nonzero stats: %+v", st)
	}
}

func TestComputeCoverage(t *testing.T) {
	dom := geom.UnitDomain()

	tests := []struct {
		name      string
		positions []r2.Vec
		gridRes   int
		want      float64
	}{
		{
			"single cell",
			[]r2.Vec{{X: 0.1, Y: 0.1}, {X: 0.15, Y: 0.12}},
			2, 0.25,
		},
		{
			"all four cells",
			[]r2.Vec{{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.2}, {X: 0.2, Y: 0.8}, {X: 0.8, Y: 0.8}},
			2, 1.0,
		},
		{
			"boundary clamps into last cell",
			[]r2.Vec{{X: 1, Y: 1}},
			2, 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vels := make([]r2.Vec, len(tt.positions))
			st := Compute(0, tt.positions, vels, dom, tt.gridRes)
			if math.Abs(st.Coverage-tt.want) > 1e-12 {
				t.Errorf("Coverage = %v, want %v", st.Coverage, tt.want)
			}
		})
	}
}

func TestComputeSpacing(t *testing.T) {
	dom := geom.UnitDomain()

	// Evenly spaced line: every nearest-neighbor distance is 0.2.
	positions := []r2.Vec{
		{X: 0.1, Y: 0.5}, {X: 0.3, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 0.7, Y: 0.5},
	}
	vels := make([]r2.Vec, len(positions))

	st := Compute(0, positions, vels, dom, 4)
	if math.Abs(st.SpacingMean-0.2) > 1e-12 {
		t.Errorf("SpacingMean = %v, want 0.2", st.SpacingMean)
	}
	if st.SpacingStd > 1e-12 {
		t.Errorf("SpacingStd = %v, want 0 for even spacing", st.SpacingStd)
	}
	if st.SpacingCV() > 1e-12 {
		t.Errorf("SpacingCV = %v, want 0 for even spacing", st.SpacingCV())
	}
}

func TestComputeSpeedMean(t *testing.T) {
	dom := geom.UnitDomain()
	positions := []r2.Vec{{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.8}}
	vels := []r2.Vec{{X: 3, Y: 4}, {X: 0, Y: 0}}

	st := Compute(0, positions, vels, dom, 4)
	if math.Abs(st.SpeedMean-2.5) > 1e-12 {
		t.Errorf("SpeedMean = %v, want 2.5", st.SpeedMean)
	}
}

func TestSpacingCVZeroMean(t *testing.T) {
	var st ScatterStats
	if cv := st.SpacingCV(); cv != 0 {
		t.Errorf("SpacingCV with zero mean = %v, want 0", cv)
	}
}
