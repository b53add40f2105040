package model

// OptimizerConfig is the JSON-facing description of a placement-search run.
// It is translated into swarm.Config by the host; validation happens there.
type OptimizerConfig struct {
	// NumAntennas is how many antennas to place.
	NumAntennas int `json:"NumAntennas"`
	// NumParticles is the swarm population size.
	NumParticles int `json:"NumParticles"`
	// NumIters is the fixed iteration budget. There is no early stopping.
	NumIters int `json:"NumIters"`

	// Inertia, Cognitive and Social are the PSO velocity-update weights
	// (w, c1, c2). Typical ranges: w in [0.4, 0.9], c1/c2 in [1, 2].
	Inertia   float64 `json:"Inertia"`
	Cognitive float64 `json:"Cognitive"`
	Social    float64 `json:"Social"`

	// MaxVelocity caps particle speed per coordinate. 0 = uncapped.
	MaxVelocity float64 `json:"MaxVelocity,omitempty"`

	// SignalRange and CutoffRadius override the antenna model's values when
	// non-zero.
	SignalRange  float64 `json:"SignalRange,omitempty"`
	CutoffRadius float64 `json:"CutoffRadius,omitempty"`

	// RepulsionWeight scales the linear penalty applied to antenna pairs
	// closer than MinSeparation.
	RepulsionWeight float64 `json:"RepulsionWeight"`
	// CriticalZoneWeight scales the extra score contributed by coverage on
	// critical cells. The bonus is additive on top of the base score, so
	// critical coverage is deliberately double-counted.
	CriticalZoneWeight float64 `json:"CriticalZoneWeight"`
	// MinSeparation is the distance (in cells) below which the repulsion
	// penalty kicks in.
	MinSeparation float64 `json:"MinSeparation"`

	// Seed makes runs reproducible. Two runs with the same layout, config
	// and seed produce bit-identical results.
	Seed int64 `json:"Seed"`

	// Parallelism bounds concurrent fitness evaluations within one
	// iteration. 0 or 1 = serial.
	Parallelism int `json:"Parallelism,omitempty"`
}
