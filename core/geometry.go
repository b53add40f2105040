package core

import (
	"math"

	"github.com/signalsfoundry/antenna-placement-optimizer/model"
)

// Distance returns the Euclidean distance between two cell centres.
func Distance(a, b model.Cell) float64 {
	dr := float64(a.Row - b.Row)
	dc := float64(a.Col - b.Col)
	return math.Sqrt(dr*dr + dc*dc)
}

// hasLineOfSight checks whether the straight path between two cells crosses a
// blocked cell. The endpoints themselves are not tested: a wall blocks the
// path only when it lies strictly between the two cells.
//
// The traversal is integer Bresenham over the grid, so "the straight path"
// means the raster cells the segment steps through.
func hasLineOfSight(l *Layout, from, to model.Cell) bool {
	r0, c0 := from.Row, from.Col
	r1, c1 := to.Row, to.Col

	dr := abs(r1 - r0)
	dc := abs(c1 - c0)
	sr := 1
	if r0 > r1 {
		sr = -1
	}
	sc := 1
	if c0 > c1 {
		sc = -1
	}

	err := dr - dc
	r, c := r0, c0
	for {
		if r == r1 && c == c1 {
			return true
		}
		e2 := 2 * err
		if e2 > -dc {
			err -= dc
			r += sr
		}
		if e2 < dr {
			err += dr
			c += sc
		}
		if r == r1 && c == c1 {
			return true
		}
		if l.Blocked(model.Cell{Row: r, Col: c}) {
			return false
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// mirror reflects coordinate x across the wall plane at w, yielding the
// position of the axis-aligned virtual source: x' = 2w - x.
func mirror(x, w int) int {
	return 2*w - x
}
