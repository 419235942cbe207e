package agent

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/fenwick-cg/canopy/geom"
)

// Index finds the neighbors of a snapshot agent within a radius.
// Neighbors are all other agents whose parametric distance is strictly
// less than radius, returned in population order. Implementations must
// produce identical neighbor sets for identical inputs; the index is a
// performance choice, never a semantic one.
type Index interface {
	// Neighbors appends pointers into snapshot to dst and returns the
	// updated slice. Reuse dst across calls to avoid allocations.
	Neighbors(dst []*Agent, snapshot []Agent, self int, radius float64) []*Agent
}

// BruteIndex is the all-pairs scan. O(N) per query, O(N^2) per step;
// fine for populations in the tens to low hundreds.
type BruteIndex struct{}

// Neighbors implements Index.
func (BruteIndex) Neighbors(dst []*Agent, snapshot []Agent, self int, radius float64) []*Agent {
	r2sq := radius * radius
	pos := snapshot[self].Pos
	for i := range snapshot {
		if i == self {
			continue
		}
		d := pos.Sub(snapshot[i].Pos)
		if r2.Norm2(d) < r2sq {
			dst = append(dst, &snapshot[i])
		}
	}
	return dst
}

// GridIndex buckets snapshot agents into uniform cells for sublinear
// radius queries. Rebuild must be called whenever the snapshot changes.
// Query results are sorted back into population order so that force
// accumulation is bit-identical to BruteIndex.
type GridIndex struct {
	dom      geom.Domain
	cellSize float64
	cols     int
	rows     int
	cells    [][]int
}

// NewGridIndex creates a grid covering the domain with the given cell
// size. Cell size is typically the neighbor radius.
func NewGridIndex(dom geom.Domain, cellSize float64) *GridIndex {
	cols := int(dom.SpanU()/cellSize) + 1
	rows := int(dom.SpanV()/cellSize) + 1

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 8)
	}

	return &GridIndex{
		dom:      dom,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Rebuild clears the grid and re-inserts every snapshot agent.
func (g *GridIndex) Rebuild(snapshot []Agent) {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	for i := range snapshot {
		idx := g.cellIndex(snapshot[i].Pos)
		g.cells[idx] = append(g.cells[idx], i)
	}
}

// Neighbors implements Index. The grid is read-only during queries, so
// concurrent calls against the same rebuilt snapshot are safe.
func (g *GridIndex) Neighbors(dst []*Agent, snapshot []Agent, self int, radius float64) []*Agent {
	cellRadius := int(radius/g.cellSize) + 1
	pos := snapshot[self].Pos

	centerCol := g.col(pos.X)
	centerRow := g.row(pos.Y)
	radiusSq := radius * radius

	idxs := make([]int, 0, 32)
	for dr := -cellRadius; dr <= cellRadius; dr++ {
		row := centerRow + dr
		if row < 0 || row >= g.rows {
			continue
		}
		for dc := -cellRadius; dc <= cellRadius; dc++ {
			col := centerCol + dc
			if col < 0 || col >= g.cols {
				continue
			}

			for _, i := range g.cells[row*g.cols+col] {
				if i == self {
					continue
				}
				d := pos.Sub(snapshot[i].Pos)
				if r2.Norm2(d) < radiusSq {
					idxs = append(idxs, i)
				}
			}
		}
	}

	sort.Ints(idxs)
	for _, i := range idxs {
		dst = append(dst, &snapshot[i])
	}
	return dst
}

// cellIndex returns the flat cell index for a parametric position,
// clamped to the grid.
func (g *GridIndex) cellIndex(p r2.Vec) int {
	return g.row(p.Y)*g.cols + g.col(p.X)
}

func (g *GridIndex) col(u float64) int {
	c := int((u - g.dom.U0) / g.cellSize)
	if c < 0 {
		c = 0
	} else if c >= g.cols {
		c = g.cols - 1
	}
	return c
}

func (g *GridIndex) row(v float64) int {
	r := int((v - g.dom.V0) / g.cellSize)
	if r < 0 {
		r = 0
	} else if r >= g.rows {
		r = g.rows - 1
	}
	return r
}
