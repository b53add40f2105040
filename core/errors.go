package core

import (
	"fmt"

	"github.com/signalsfoundry/antenna-placement-optimizer/model"
)

// LayoutError reports a malformed or degenerate floor plan. It is fatal at
// construction; a Layout that exists is always usable.
type LayoutError struct {
	Reason string
}

func (e *LayoutError) Error() string {
	return "invalid layout: " + e.Reason
}

// InvalidPlacementError reports a placement coordinate that is out of grid
// bounds or lands on a blocked cell. The optimizer's repair step guarantees
// this never happens in normal operation; seeing it surface means the repair
// logic has a defect, so callers should treat it as fatal rather than retry.
type InvalidPlacementError struct {
	Cell   model.Cell
	Reason string
}

func (e *InvalidPlacementError) Error() string {
	return fmt.Sprintf("invalid placement at (%d,%d): %s", e.Cell.Row, e.Cell.Col, e.Reason)
}
