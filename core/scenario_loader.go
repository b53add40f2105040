// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/antenna-placement-optimizer/kb"
	"github.com/signalsfoundry/antenna-placement-optimizer/model"
)

// Scenario is what a loaded scenario file resolves to: the compiled floor
// plan, the antenna model the run should use, and the optimizer settings.
type Scenario struct {
	Plan      *model.FloorPlan
	Antenna   *model.AntennaModel
	Optimizer model.OptimizerConfig
}

// internal JSON shapes – kept unexported so we're free to evolve them.
type scenarioJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Grid rows use '#' for walls, '.' for floor, '!' for critical floor.
	Grid []string `json:"grid"`

	// Critical lists extra critical cells beyond those in the grid rows.
	Critical []cellJSON `json:"critical,omitempty"`

	// DetectCorridors asks the loader to flag one-cell-wide passages as
	// critical automatically.
	DetectCorridors bool `json:"detect_corridors,omitempty"`

	AntennaModels  []antennaModelJSON `json:"antenna_models,omitempty"`
	AntennaModelID string             `json:"antenna_model_id,omitempty"`

	Optimizer optimizerJSON `json:"optimizer"`
}

type cellJSON struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type antennaModelJSON struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	SignalRange   float64  `json:"signal_range"`
	CutoffRadius  float64  `json:"cutoff_radius,omitempty"`
	TxPowerDBm    *float64 `json:"tx_power_dbm,omitempty"`
	MinSeparation float64  `json:"min_separation,omitempty"`
}

type optimizerJSON struct {
	NumAntennas        int     `json:"num_antennas"`
	NumParticles       int     `json:"num_particles"`
	NumIters           int     `json:"num_iters"`
	Inertia            float64 `json:"inertia"`
	Cognitive          float64 `json:"cognitive"`
	Social             float64 `json:"social"`
	MaxVelocity        float64 `json:"max_velocity,omitempty"`
	SignalRange        float64 `json:"signal_range,omitempty"`
	CutoffRadius       float64 `json:"cutoff_radius,omitempty"`
	RepulsionWeight    float64 `json:"repulsion_weight"`
	CriticalZoneWeight float64 `json:"critical_zone_weight"`
	MinSeparation      float64 `json:"min_separation"`
	Seed               int64   `json:"seed"`
	Parallelism        int     `json:"parallelism,omitempty"`
}

// LoadScenario reads a JSON scenario from r, registers its floor plan and
// antenna models in the store, and returns the resolved scenario.
//
// It fails on JSON and structural errors (ragged grids, unknown antenna model
// references, duplicate IDs); hyperparameter validation is left to the
// optimizer, which owns those invariants.
func LoadScenario(store *kb.Store, r io.Reader) (*Scenario, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadScenario: store is nil")
	}

	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("LoadScenario: scenario with empty id")
	}

	plan, err := ParseGrid(payload.Grid)
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}
	plan.ID = payload.ID
	plan.Name = payload.Name
	for _, c := range payload.Critical {
		plan.Critical = append(plan.Critical, model.Cell{Row: c.Row, Col: c.Col})
	}
	if payload.DetectCorridors {
		corridors, err := DetectCorridors(plan)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		plan.Critical = appendMissing(plan.Critical, corridors)
	}

	var antenna *model.AntennaModel
	for _, am := range payload.AntennaModels {
		m := &model.AntennaModel{
			ID:            am.ID,
			Name:          am.Name,
			SignalRange:   am.SignalRange,
			CutoffRadius:  am.CutoffRadius,
			TxPowerDBm:    am.TxPowerDBm,
			MinSeparation: am.MinSeparation,
		}
		if err := store.AddAntennaModel(m); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		if am.ID == payload.AntennaModelID {
			antenna = m
		}
	}
	if payload.AntennaModelID != "" && antenna == nil {
		antenna = store.GetAntennaModel(payload.AntennaModelID)
		if antenna == nil {
			return nil, fmt.Errorf("LoadScenario: antenna model %q not found", payload.AntennaModelID)
		}
	}

	if err := store.AddFloorPlan(plan); err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}

	cfg := model.OptimizerConfig{
		NumAntennas:        payload.Optimizer.NumAntennas,
		NumParticles:       payload.Optimizer.NumParticles,
		NumIters:           payload.Optimizer.NumIters,
		Inertia:            payload.Optimizer.Inertia,
		Cognitive:          payload.Optimizer.Cognitive,
		Social:             payload.Optimizer.Social,
		MaxVelocity:        payload.Optimizer.MaxVelocity,
		SignalRange:        payload.Optimizer.SignalRange,
		CutoffRadius:       payload.Optimizer.CutoffRadius,
		RepulsionWeight:    payload.Optimizer.RepulsionWeight,
		CriticalZoneWeight: payload.Optimizer.CriticalZoneWeight,
		MinSeparation:      payload.Optimizer.MinSeparation,
		Seed:               payload.Optimizer.Seed,
		Parallelism:        payload.Optimizer.Parallelism,
	}
	// Antenna model values fill gaps the optimizer block left open.
	if antenna != nil {
		if cfg.SignalRange == 0 {
			cfg.SignalRange = antenna.SignalRange
		}
		if cfg.CutoffRadius == 0 {
			cfg.CutoffRadius = antenna.CutoffRadius
		}
		if cfg.MinSeparation == 0 {
			cfg.MinSeparation = antenna.MinSeparation
		}
	}

	return &Scenario{Plan: plan, Antenna: antenna, Optimizer: cfg}, nil
}

// LoadScenarioFile is LoadScenario over a file path.
func LoadScenarioFile(store *kb.Store, path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadScenario(store, f)
}

func appendMissing(existing, extra []model.Cell) []model.Cell {
	seen := make(map[model.Cell]bool, len(existing))
	for _, c := range existing {
		seen[c] = true
	}
	for _, c := range extra {
		if !seen[c] {
			existing = append(existing, c)
			seen[c] = true
		}
	}
	return existing
}
