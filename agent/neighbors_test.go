package agent

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/fenwick-cg/canopy/geom"
)

// snapshotAt builds a snapshot of bare agents at the given positions.
// Neighbor queries only touch Pos, so the shared references stay nil.
func snapshotAt(positions ...r2.Vec) []Agent {
	snap := make([]Agent, len(positions))
	for i, p := range positions {
		snap[i].Pos = p
	}
	return snap
}

func neighborIndices(snap []Agent, found []*Agent) []int {
	idxs := make([]int, 0, len(found))
	for _, n := range found {
		for i := range snap {
			if n == &snap[i] {
				idxs = append(idxs, i)
			}
		}
	}
	return idxs
}

func TestBruteIndexNeighbors(t *testing.T) {
	snap := snapshotAt(
		r2.Vec{X: 0.5, Y: 0.5},
		r2.Vec{X: 0.52, Y: 0.5},  // inside radius
		r2.Vec{X: 0.5, Y: 0.55},  // exactly on radius: excluded
		r2.Vec{X: 0.9, Y: 0.9},   // far away
		r2.Vec{X: 0.48, Y: 0.49}, // inside radius
	)

	var brute BruteIndex
	got := neighborIndices(snap, brute.Neighbors(nil, snap, 0, 0.05))

	want := []int{1, 4}
	if len(got) != len(want) {
		t.Fatalf("neighbors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("neighbors = %v, want %v", got, want)
		}
	}
}

func TestBruteIndexExcludesSelf(t *testing.T) {
	snap := snapshotAt(r2.Vec{X: 0.5, Y: 0.5}, r2.Vec{X: 0.5, Y: 0.5})

	var brute BruteIndex
	found := brute.Neighbors(nil, snap, 0, 0.1)
	if len(found) != 1 || found[0] != &snap[1] {
		t.Errorf("self index leaked into its own neighborhood: %v", neighborIndices(snap, found))
	}
}

func TestBruteIndexZeroRadius(t *testing.T) {
	snap := snapshotAt(r2.Vec{X: 0.5, Y: 0.5}, r2.Vec{X: 0.5, Y: 0.5})

	var brute BruteIndex
	if found := brute.Neighbors(nil, snap, 0, 0); len(found) != 0 {
		t.Errorf("zero radius returned %d neighbors, want 0", len(found))
	}
}

func TestNeighborSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	snap := make([]Agent, 60)
	for i := range snap {
		snap[i].Pos = r2.Vec{X: rng.Float64(), Y: rng.Float64()}
	}

	var brute BruteIndex
	radius := 0.15
	within := make([][]bool, len(snap))
	for i := range snap {
		within[i] = make([]bool, len(snap))
		for _, j := range neighborIndices(snap, brute.Neighbors(nil, snap, i, radius)) {
			within[i][j] = true
		}
	}

	for i := range snap {
		for j := range snap {
			if within[i][j] != within[j][i] {
				t.Fatalf("asymmetric neighborhood: %d sees %d = %v, reverse = %v",
					i, j, within[i][j], within[j][i])
			}
		}
	}
}

func TestGridIndexMatchesBrute(t *testing.T) {
	dom := geom.UnitDomain()
	rng := rand.New(rand.NewSource(11))

	snap := make([]Agent, 200)
	for i := range snap {
		snap[i].Pos = r2.Vec{X: rng.Float64(), Y: rng.Float64()}
	}

	for _, radius := range []float64{0.01, 0.05, 0.2, 0.7} {
		grid := NewGridIndex(dom, radius)
		grid.Rebuild(snap)

		var brute BruteIndex
		for self := range snap {
			wantIdx := neighborIndices(snap, brute.Neighbors(nil, snap, self, radius))
			gotIdx := neighborIndices(snap, grid.Neighbors(nil, snap, self, radius))

			if len(gotIdx) != len(wantIdx) {
				t.Fatalf("radius %g self %d: grid found %v, brute found %v",
					radius, self, gotIdx, wantIdx)
			}
			for k := range wantIdx {
				if gotIdx[k] != wantIdx[k] {
					t.Fatalf("radius %g self %d: grid order %v, brute order %v",
						radius, self, gotIdx, wantIdx)
				}
			}
		}
	}
}

func TestGridIndexBoundaryPositions(t *testing.T) {
	dom := geom.UnitDomain()
	snap := snapshotAt(
		r2.Vec{X: 0, Y: 0},
		r2.Vec{X: 1, Y: 1},
		r2.Vec{X: 0.02, Y: 0},
		r2.Vec{X: 1, Y: 0.97},
	)

	grid := NewGridIndex(dom, 0.05)
	grid.Rebuild(snap)

	if got := neighborIndices(snap, grid.Neighbors(nil, snap, 0, 0.05)); len(got) != 1 || got[0] != 2 {
		t.Errorf("corner (0,0) neighbors = %v, want [2]", got)
	}
	if got := neighborIndices(snap, grid.Neighbors(nil, snap, 1, 0.05)); len(got) != 1 || got[0] != 3 {
		t.Errorf("corner (1,1) neighbors = %v, want [3]", got)
	}
}

func TestGridIndexReusesDst(t *testing.T) {
	dom := geom.UnitDomain()
	snap := snapshotAt(r2.Vec{X: 0.5, Y: 0.5}, r2.Vec{X: 0.51, Y: 0.5})

	grid := NewGridIndex(dom, 0.05)
	grid.Rebuild(snap)

	dst := make([]*Agent, 0, 8)
	dst = grid.Neighbors(dst, snap, 0, 0.05)
	if len(dst) != 1 {
		t.Fatalf("first query found %d neighbors, want 1", len(dst))
	}
	dst = grid.Neighbors(dst[:0], snap, 1, 0.05)
	if len(dst) != 1 || dst[0] != &snap[0] {
		t.Fatalf("reused dst query found %v", neighborIndices(snap, dst))
	}
}
