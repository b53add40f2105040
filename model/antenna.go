package model

// AntennaModel describes RF characteristics for a family of antennas.
// The optimizer uses this for signal-decay parameters; everything else is
// metadata carried along for hosts and reports.
type AntennaModel struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`

	// SignalRange controls the exponential decay of signal strength with
	// distance: strength = exp(-d / SignalRange). Larger values spread the
	// signal further.
	SignalRange float64 `json:"SignalRange"`

	// CutoffRadius is the distance (in cells) beyond which decayed signal is
	// treated as zero. A performance and realism bound, not just clipping.
	// 0 = use the optimizer default.
	CutoffRadius float64 `json:"CutoffRadius,omitempty"`

	// TxPowerDBm is the nominal transmit power. Stored only, not fed into
	// the coverage model (the decay model is unitless).
	// A pointer is used to distinguish between unset (nil) and explicitly set to 0.
	TxPowerDBm *float64 `json:"TxPowerDBm,omitempty"`

	// MinSeparation is the manufacturer-recommended minimum spacing (in
	// cells) between two antennas of this family before mutual interference
	// becomes a concern. 0 = unspecified.
	MinSeparation float64 `json:"MinSeparation,omitempty"`
}
