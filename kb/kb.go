package kb

import (
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/antenna-placement-optimizer/model"
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventRunCompleted EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type EventType
	Run  RunRecord
}

// RunRecord summarizes a completed optimization run for a stored floor plan.
type RunRecord struct {
	RunID       string
	FloorPlanID string
	Fitness     float64
	Placement   []model.Cell
	CompletedAt time.Time
}

// Store is an in-memory, thread-safe registry of floor plans, antenna models
// and completed run results.
type Store struct {
	mu sync.RWMutex

	floorPlans    map[string]*model.FloorPlan
	antennaModels map[string]*model.AntennaModel
	runs          map[string]RunRecord

	subs []func(Event)
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		floorPlans:    make(map[string]*model.FloorPlan),
		antennaModels: make(map[string]*model.AntennaModel),
		runs:          make(map[string]RunRecord),
	}
}

// AddFloorPlan adds a new floor plan. It returns an error if the ID is empty
// or already exists.
func (s *Store) AddFloorPlan(p *model.FloorPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		return fmt.Errorf("floor plan with empty ID")
	}
	if _, exists := s.floorPlans[p.ID]; exists {
		return fmt.Errorf("floor plan with ID %q already exists", p.ID)
	}
	s.floorPlans[p.ID] = p
	return nil
}

// AddAntennaModel adds a new antenna model. It returns an error if the ID is
// empty or already exists.
func (s *Store) AddAntennaModel(m *model.AntennaModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		return fmt.Errorf("antenna model with empty ID")
	}
	if _, exists := s.antennaModels[m.ID]; exists {
		return fmt.Errorf("antenna model with ID %q already exists", m.ID)
	}
	s.antennaModels[m.ID] = m
	return nil
}

// GetFloorPlan returns the floor plan with the given ID, or nil if not found.
func (s *Store) GetFloorPlan(id string) *model.FloorPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.floorPlans[id]
}

// GetAntennaModel returns the antenna model with the given ID, or nil if not found.
func (s *Store) GetAntennaModel(id string) *model.AntennaModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.antennaModels[id]
}

// ListFloorPlans returns a snapshot slice of all floor plans.
func (s *Store) ListFloorPlans() []*model.FloorPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*model.FloorPlan, 0, len(s.floorPlans))
	for _, p := range s.floorPlans {
		res = append(res, p)
	}
	return res
}

// ListAntennaModels returns a snapshot slice of all antenna models.
func (s *Store) ListAntennaModels() []*model.AntennaModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*model.AntennaModel, 0, len(s.antennaModels))
	for _, m := range s.antennaModels {
		res = append(res, m)
	}
	return res
}

// RecordRun stores a completed run result and notifies subscribers. It
// returns an error if the referenced floor plan does not exist.
func (s *Store) RecordRun(rec RunRecord) error {
	s.mu.Lock()
	if _, ok := s.floorPlans[rec.FloorPlanID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("floor plan with ID %q not found for run", rec.FloorPlanID)
	}
	s.runs[rec.RunID] = rec
	subs := append([](func(Event))(nil), s.subs...)
	s.mu.Unlock()

	event := Event{Type: EventRunCompleted, Run: rec}
	for _, fn := range subs {
		fn(event)
	}
	return nil
}

// GetRun returns the run record with the given ID.
func (s *Store) GetRun(id string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	return rec, ok
}

// BestRunForPlan returns the highest-fitness run recorded for a floor plan.
func (s *Store) BestRunForPlan(planID string) (RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best RunRecord
	found := false
	for _, rec := range s.runs {
		if rec.FloorPlanID != planID {
			continue
		}
		if !found || rec.Fitness > best.Fitness {
			best = rec
			found = true
		}
	}
	return best, found
}

// Subscribe registers a callback invoked on every store event. Callbacks run
// synchronously on the mutating goroutine and must not call back into the
// store's mutators.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
