package model

// Cell identifies one grid cell by row and column. The grid is row-major
// with the origin at the top-left corner.
type Cell struct {
	Row int `json:"Row"`
	Col int `json:"Col"`
}

// FloorPlan describes a rectangular site layout: its dimensions, which cells
// are blocked by walls or fixtures, and which passable cells are flagged as
// critical coverage zones.
//
// FloorPlan is a plain description; it is compiled into a core.Layout before
// any evaluation happens, and validation lives there rather than here.
type FloorPlan struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`

	Rows int `json:"Rows"`
	Cols int `json:"Cols"`

	// Blocked lists wall cells. Signal does not propagate through them and
	// antennas cannot be placed on them.
	Blocked []Cell `json:"Blocked,omitempty"`

	// Critical lists passable cells that carry extra weight in the coverage
	// score (narrow aisles, checkout corridors, dock doors).
	Critical []Cell `json:"Critical,omitempty"`
}
