package core

import (
	"fmt"

	"github.com/signalsfoundry/antenna-placement-optimizer/model"
)

type cellState uint8

const (
	statePassable cellState = iota
	stateBlocked
)

// Layout is the compiled, immutable form of a model.FloorPlan. It answers
// cell-state queries in O(1) and owns the enumeration of passable cells used
// for random placement sampling and for repair.
//
// A Layout is never mutated after construction; it is safe to share across
// goroutines and across concurrent coverage evaluations.
type Layout struct {
	rows, cols int
	state      []cellState
	critical   []bool

	// passable holds all passable cells in raster order (row-major). Repair
	// tie-breaking depends on this ordering.
	passable []model.Cell
}

// NewLayout compiles a floor plan. It fails with a *LayoutError when the grid
// is empty, a listed cell is out of bounds, a critical cell is blocked, or no
// passable cell remains (no legal antenna position exists).
func NewLayout(plan *model.FloorPlan) (*Layout, error) {
	if plan == nil {
		return nil, &LayoutError{Reason: "nil floor plan"}
	}
	if plan.Rows <= 0 || plan.Cols <= 0 {
		return nil, &LayoutError{Reason: fmt.Sprintf("empty grid (%dx%d)", plan.Rows, plan.Cols)}
	}

	l := &Layout{
		rows:     plan.Rows,
		cols:     plan.Cols,
		state:    make([]cellState, plan.Rows*plan.Cols),
		critical: make([]bool, plan.Rows*plan.Cols),
	}

	for _, c := range plan.Blocked {
		if !l.InBounds(c) {
			return nil, &LayoutError{Reason: fmt.Sprintf("blocked cell (%d,%d) out of bounds", c.Row, c.Col)}
		}
		l.state[l.index(c)] = stateBlocked
	}
	for _, c := range plan.Critical {
		if !l.InBounds(c) {
			return nil, &LayoutError{Reason: fmt.Sprintf("critical cell (%d,%d) out of bounds", c.Row, c.Col)}
		}
		if l.state[l.index(c)] == stateBlocked {
			return nil, &LayoutError{Reason: fmt.Sprintf("critical cell (%d,%d) is blocked", c.Row, c.Col)}
		}
		l.critical[l.index(c)] = true
	}

	for r := 0; r < l.rows; r++ {
		for c := 0; c < l.cols; c++ {
			cell := model.Cell{Row: r, Col: c}
			if l.state[l.index(cell)] == statePassable {
				l.passable = append(l.passable, cell)
			}
		}
	}
	if len(l.passable) == 0 {
		return nil, &LayoutError{Reason: "no passable cells"}
	}

	return l, nil
}

// Rows returns the grid height.
func (l *Layout) Rows() int { return l.rows }

// Cols returns the grid width.
func (l *Layout) Cols() int { return l.cols }

// InBounds reports whether the cell lies within the grid.
func (l *Layout) InBounds(c model.Cell) bool {
	return c.Row >= 0 && c.Row < l.rows && c.Col >= 0 && c.Col < l.cols
}

// Passable reports whether the cell is inside the grid and not a wall.
func (l *Layout) Passable(c model.Cell) bool {
	return l.InBounds(c) && l.state[l.index(c)] == statePassable
}

// Blocked reports whether the cell is inside the grid and a wall.
func (l *Layout) Blocked(c model.Cell) bool {
	return l.InBounds(c) && l.state[l.index(c)] == stateBlocked
}

// Critical reports whether the cell is flagged as a critical coverage zone.
func (l *Layout) Critical(c model.Cell) bool {
	return l.InBounds(c) && l.critical[l.index(c)]
}

// PassableCells returns all passable cells in raster order. The returned
// slice is a copy; callers may reorder it freely.
func (l *Layout) PassableCells() []model.Cell {
	out := make([]model.Cell, len(l.passable))
	copy(out, l.passable)
	return out
}

// PassableCount returns the number of passable cells.
func (l *Layout) PassableCount() int { return len(l.passable) }

// NearestPassable snaps an arbitrary (possibly out-of-bounds or blocked)
// coordinate to the closest passable cell by Euclidean distance. Ties are
// broken by raster order: the earliest passable cell at the minimal distance
// wins. The input cell is returned unchanged when it is already passable.
//
// This is the repair step after a raw position update, which is continuous
// and has no concept of walls or bounds.
func (l *Layout) NearestPassable(c model.Cell) model.Cell {
	if l.Passable(c) {
		return c
	}
	best := l.passable[0]
	bestD := squaredDistance(c, best)
	for _, p := range l.passable[1:] {
		if d := squaredDistance(c, p); d < bestD {
			best, bestD = p, d
		}
	}
	return best
}

func squaredDistance(a, b model.Cell) int {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	return dr*dr + dc*dc
}

func (l *Layout) index(c model.Cell) int {
	return c.Row*l.cols + c.Col
}

// ParseGrid converts ASCII grid rows into a floor plan. Recognized characters:
// '#' wall, '.' floor, '!' critical floor. It fails with a *LayoutError when
// the rows are empty, ragged (non-rectangular), or contain an unknown rune.
func ParseGrid(rows []string) (*model.FloorPlan, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, &LayoutError{Reason: "empty grid"}
	}
	plan := &model.FloorPlan{Rows: len(rows), Cols: len(rows[0])}
	for r, row := range rows {
		if len(row) != plan.Cols {
			return nil, &LayoutError{Reason: fmt.Sprintf("row %d has %d cells, want %d (grid must be rectangular)", r, len(row), plan.Cols)}
		}
		for c, ch := range row {
			cell := model.Cell{Row: r, Col: c}
			switch ch {
			case '#':
				plan.Blocked = append(plan.Blocked, cell)
			case '!':
				plan.Critical = append(plan.Critical, cell)
			case '.':
			default:
				return nil, &LayoutError{Reason: fmt.Sprintf("unknown grid character %q at (%d,%d)", ch, r, c)}
			}
		}
	}
	return plan, nil
}

// DetectCorridors finds one-cell-wide passages: interior passable cells whose
// vertical neighbours are both walls while the horizontal neighbours are
// passable, or vice versa. Such cells are natural critical zones for
// coverage, and scenarios may request this detection instead of listing
// critical cells by hand.
func DetectCorridors(plan *model.FloorPlan) ([]model.Cell, error) {
	l, err := NewLayout(plan)
	if err != nil {
		return nil, err
	}

	var out []model.Cell
	for r := 1; r < l.rows-1; r++ {
		for c := 1; c < l.cols-1; c++ {
			cell := model.Cell{Row: r, Col: c}
			if !l.Passable(cell) {
				continue
			}
			up := model.Cell{Row: r - 1, Col: c}
			down := model.Cell{Row: r + 1, Col: c}
			left := model.Cell{Row: r, Col: c - 1}
			right := model.Cell{Row: r, Col: c + 1}

			vertWalls := l.Blocked(up) && l.Blocked(down) && l.Passable(left) && l.Passable(right)
			horizWalls := l.Blocked(left) && l.Blocked(right) && l.Passable(up) && l.Passable(down)
			if vertWalls || horizWalls {
				out = append(out, cell)
			}
		}
	}
	return out, nil
}
