package core

import (
	"math"

	"github.com/signalsfoundry/antenna-placement-optimizer/model"
)

// Placement is one candidate assignment of antenna positions. It is read-only
// input to the coverage model; only the optimizer mutates placements.
type Placement []model.Cell

// Clone returns a deep copy of the placement.
func (p Placement) Clone() Placement {
	out := make(Placement, len(p))
	copy(out, p)
	return out
}

// CoverageParams are the tunables of the coverage evaluation.
type CoverageParams struct {
	// SignalRange controls exponential decay: strength = exp(-d / SignalRange).
	SignalRange float64
	// CutoffRadius is the distance beyond which decayed signal is treated as
	// zero. Bounds the per-antenna work to a (2R+1)^2 box.
	CutoffRadius float64
	// RepulsionWeight scales the linear penalty for antenna pairs closer
	// than MinSeparation.
	RepulsionWeight float64
	// CriticalZoneWeight scales the extra contribution of coverage on
	// critical cells. The bonus is added on top of the base score, so
	// critical coverage counts twice by design.
	CriticalZoneWeight float64
	// MinSeparation is the pairwise distance below which repulsion applies.
	MinSeparation float64
}

const (
	// blockedAttenuation is the fraction of direct signal that survives a
	// wall crossing on the straight path between antenna and cell.
	blockedAttenuation = 0.25

	// reflectionLoss is the fraction of signal strength retained after a
	// single axis-aligned bounce off the nearest wall.
	reflectionLoss = 0.5

	// overlapThreshold is the direct signal strength above which an antenna
	// counts as "covering" a cell in the overlap diagnostic.
	overlapThreshold = 0.01
)

// CoverageField is the per-cell diagnostic output of an evaluation: the
// accumulated signal strength and the number of antennas covering each cell.
// It is recomputed fresh per evaluation and never cached across placements.
type CoverageField struct {
	rows, cols int
	signal     []float64
	overlap    []int
}

// Rows returns the field height.
func (f *CoverageField) Rows() int { return f.rows }

// Cols returns the field width.
func (f *CoverageField) Cols() int { return f.cols }

// SignalAt returns the accumulated signal strength at a cell, 0 outside the grid.
func (f *CoverageField) SignalAt(c model.Cell) float64 {
	if c.Row < 0 || c.Row >= f.rows || c.Col < 0 || c.Col >= f.cols {
		return 0
	}
	return f.signal[c.Row*f.cols+c.Col]
}

// OverlapAt returns how many antennas cover the cell above the detection
// threshold, 0 outside the grid.
func (f *CoverageField) OverlapAt(c model.Cell) int {
	if c.Row < 0 || c.Row >= f.rows || c.Col < 0 || c.Col >= f.cols {
		return 0
	}
	return f.overlap[c.Row*f.cols+c.Col]
}

// SignalGrid returns the signal field as a row-major [rows][cols] slice.
func (f *CoverageField) SignalGrid() [][]float64 {
	out := make([][]float64, f.rows)
	for r := 0; r < f.rows; r++ {
		out[r] = append([]float64(nil), f.signal[r*f.cols:(r+1)*f.cols]...)
	}
	return out
}

// OverlapGrid returns the overlap counts as a row-major [rows][cols] slice.
func (f *CoverageField) OverlapGrid() [][]int {
	out := make([][]int, f.rows)
	for r := 0; r < f.rows; r++ {
		out[r] = append([]int(nil), f.overlap[r*f.cols:(r+1)*f.cols]...)
	}
	return out
}

// ValidatePlacement checks that every coordinate lies on a passable cell,
// returning a *InvalidPlacementError for the first violation. The coverage
// model calls this before simulating, never mid-computation.
func ValidatePlacement(l *Layout, p Placement) error {
	for _, c := range p {
		if !l.InBounds(c) {
			return &InvalidPlacementError{Cell: c, Reason: "out of grid bounds"}
		}
		if l.Blocked(c) {
			return &InvalidPlacementError{Cell: c, Reason: "cell is blocked"}
		}
	}
	return nil
}

// Evaluate computes the fitness of a placement against a layout.
//
// Per antenna, every passable cell within CutoffRadius receives
// exp(-d/SignalRange) of direct signal, attenuated when a wall crosses the
// straight path. A single-bounce reflection term mirrors the antenna across
// the nearest wall on each grid axis and deposits half-strength signal from
// that virtual source; reflected paths are not re-traced for obstruction.
// Contributions sum across antennas, so overlapping coverage compounds.
//
// The fitness is the mean accumulated signal over passable cells, plus
// CriticalZoneWeight times the accumulated signal on each critical cell,
// minus RepulsionWeight*(MinSeparation-d) for each antenna pair closer than
// MinSeparation. It is unbounded above and can go negative when repulsion
// dominates; callers must not assume a range.
//
// Evaluate is pure: it holds no state between calls and is safe to invoke
// concurrently for different placements against the same Layout.
func Evaluate(l *Layout, p Placement, params CoverageParams) (float64, error) {
	fitness, _, err := evaluate(l, p, params, false)
	return fitness, err
}

// EvaluateField is Evaluate plus the per-cell coverage field, for diagnostic
// consumers such as heatmap and overlap-map renderers.
func EvaluateField(l *Layout, p Placement, params CoverageParams) (float64, *CoverageField, error) {
	return evaluate(l, p, params, true)
}

func evaluate(l *Layout, p Placement, params CoverageParams, wantField bool) (float64, *CoverageField, error) {
	if err := ValidatePlacement(l, p); err != nil {
		return 0, nil, err
	}

	field := &CoverageField{
		rows:    l.rows,
		cols:    l.cols,
		signal:  make([]float64, l.rows*l.cols),
		overlap: make([]int, l.rows*l.cols),
	}

	for _, tx := range p {
		accumulateDirect(l, tx, params, field)
		accumulateReflections(l, tx, params, field)
	}

	var total, critBonus float64
	for _, c := range l.passable {
		s := field.signal[l.index(c)]
		total += s
		if l.critical[l.index(c)] {
			critBonus += params.CriticalZoneWeight * s
		}
	}
	base := total / float64(len(l.passable))

	fitness := base + critBonus - repulsionPenalty(p, params)
	if !wantField {
		return fitness, nil, nil
	}
	return fitness, field, nil
}

// accumulateDirect adds the antenna's line-of-sight contribution to every
// passable cell within the cutoff box, and bumps the overlap count where the
// direct strength clears the detection threshold.
func accumulateDirect(l *Layout, tx model.Cell, params CoverageParams, field *CoverageField) {
	radius := int(math.Ceil(params.CutoffRadius))
	for di := -radius; di <= radius; di++ {
		for dj := -radius; dj <= radius; dj++ {
			n := model.Cell{Row: tx.Row + di, Col: tx.Col + dj}
			if !l.Passable(n) {
				continue
			}
			d := math.Sqrt(float64(di*di + dj*dj))
			if d > params.CutoffRadius {
				continue
			}
			s := math.Exp(-d / params.SignalRange)
			if !hasLineOfSight(l, tx, n) {
				s *= blockedAttenuation
			}
			idx := l.index(n)
			field.signal[idx] += s
			if s >= overlapThreshold {
				field.overlap[idx]++
			}
		}
	}
}

// accumulateReflections approximates indirect illumination: for each of the
// four axis directions, the nearest wall within the cutoff spawns a virtual
// source mirroring the antenna across that wall, radiating at reflectionLoss
// strength. Only the nearest wall per axis reflects, and reflected paths are
// not traced for further obstruction.
func accumulateReflections(l *Layout, tx model.Cell, params CoverageParams, field *CoverageField) {
	radius := int(math.Ceil(params.CutoffRadius))
	dirs := [4]model.Cell{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}}

	for _, dir := range dirs {
		var virtual model.Cell
		found := false
		for k := 1; k <= radius; k++ {
			w := model.Cell{Row: tx.Row + k*dir.Row, Col: tx.Col + k*dir.Col}
			if !l.InBounds(w) {
				break
			}
			if l.Blocked(w) {
				virtual = model.Cell{Row: mirror(tx.Row, w.Row), Col: mirror(tx.Col, w.Col)}
				found = true
				break
			}
		}
		if !found {
			continue
		}

		for di := -radius; di <= radius; di++ {
			for dj := -radius; dj <= radius; dj++ {
				n := model.Cell{Row: virtual.Row + di, Col: virtual.Col + dj}
				if !l.Passable(n) {
					continue
				}
				d := math.Sqrt(float64(di*di + dj*dj))
				if d > params.CutoffRadius {
					continue
				}
				field.signal[l.index(n)] += reflectionLoss * math.Exp(-d/params.SignalRange)
			}
		}
	}
}

// repulsionPenalty sums the linear hinge penalty over unordered antenna
// pairs: RepulsionWeight*(MinSeparation-d) when d < MinSeparation, zero once
// separation reaches the threshold. This is the sole mechanism preventing
// antennas from clustering.
func repulsionPenalty(p Placement, params CoverageParams) float64 {
	if params.MinSeparation <= 0 {
		return 0
	}
	var penalty float64
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			d := Distance(p[i], p[j])
			if d < params.MinSeparation {
				penalty += params.RepulsionWeight * (params.MinSeparation - d)
			}
		}
	}
	return penalty
}
