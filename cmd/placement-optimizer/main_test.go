package main

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/antenna-placement-optimizer/core"
	"github.com/signalsfoundry/antenna-placement-optimizer/swarm"
)

func TestApplyOverrides_OnlySetFields(t *testing.T) {
	raw := []byte("num_iters: 200\nseed: 42\nmin_separation: 3.5\n")
	var ov overrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}

	cfg := swarm.Config{
		NumAntennas:  7,
		NumParticles: 80,
		NumIters:     100,
		Inertia:      0.5,
		Coverage:     core.CoverageParams{SignalRange: 0.46, MinSeparation: 2},
		Seed:         1,
	}
	applyOverrides(&cfg, ov)

	if cfg.NumIters != 200 {
		t.Errorf("NumIters = %d, want 200", cfg.NumIters)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.Coverage.MinSeparation != 3.5 {
		t.Errorf("MinSeparation = %v, want 3.5", cfg.Coverage.MinSeparation)
	}

	// Untouched fields keep their scenario values.
	if cfg.NumAntennas != 7 || cfg.NumParticles != 80 || cfg.Inertia != 0.5 {
		t.Errorf("unset overrides must not change config: %+v", cfg)
	}
	if cfg.Coverage.SignalRange != 0.46 {
		t.Errorf("SignalRange = %v, want 0.46", cfg.Coverage.SignalRange)
	}
}

func TestApplyOverrides_ExplicitZero(t *testing.T) {
	raw := []byte("repulsion_weight: 0\n")
	var ov overrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}

	cfg := swarm.Config{Coverage: core.CoverageParams{RepulsionWeight: 0.7}}
	applyOverrides(&cfg, ov)

	if cfg.Coverage.RepulsionWeight != 0 {
		t.Errorf("RepulsionWeight = %v, want explicit 0 override", cfg.Coverage.RepulsionWeight)
	}
}
