// Package swarm implements particle-swarm search for antenna placements over
// a core.Layout. The optimizer owns all mutable search state; the coverage
// model it drives is purely functional, so particles can be evaluated
// concurrently within an iteration.
package swarm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/antenna-placement-optimizer/core"
	"github.com/signalsfoundry/antenna-placement-optimizer/internal/logging"
	"github.com/signalsfoundry/antenna-placement-optimizer/internal/observability"
	"github.com/signalsfoundry/antenna-placement-optimizer/model"
)

// defaultCutoffRadius matches the reach of the reference coverage model when
// a scenario leaves the cutoff unset.
const defaultCutoffRadius = 8.0

// ConfigurationError reports invalid hyperparameters. Fatal at construction;
// an Optimizer that exists always has a runnable configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Config are the hyperparameters of one optimization run.
type Config struct {
	NumAntennas  int
	NumParticles int
	// NumIters is the fixed iteration budget; the loop never stops early on
	// its own. Hosts wanting a wall-clock cap cancel the Run context.
	NumIters int

	// Inertia, Cognitive and Social are the velocity-update weights w, c1
	// and c2. No defaults are imposed; suggested ranges are w in [0.4, 0.9]
	// and c1/c2 in [1, 2].
	Inertia   float64
	Cognitive float64
	Social    float64

	// MaxVelocity caps particle speed per coordinate. 0 = uncapped.
	MaxVelocity float64

	// Coverage parametrizes the fitness function.
	Coverage core.CoverageParams

	// Seed feeds the single random generator behind initial sampling and the
	// per-coordinate r1/r2 draws. Equal seeds give bit-identical runs.
	Seed int64

	// Parallelism bounds concurrent fitness evaluations within one
	// iteration. 0 or 1 = serial. Results are identical either way: the
	// evaluation phase consumes no randomness.
	Parallelism int
}

// ConfigFromModel translates the JSON-facing optimizer description into a
// runnable Config, filling the cutoff default.
func ConfigFromModel(m model.OptimizerConfig) Config {
	cfg := Config{
		NumAntennas:  m.NumAntennas,
		NumParticles: m.NumParticles,
		NumIters:     m.NumIters,
		Inertia:      m.Inertia,
		Cognitive:    m.Cognitive,
		Social:       m.Social,
		MaxVelocity:  m.MaxVelocity,
		Coverage: core.CoverageParams{
			SignalRange:        m.SignalRange,
			CutoffRadius:       m.CutoffRadius,
			RepulsionWeight:    m.RepulsionWeight,
			CriticalZoneWeight: m.CriticalZoneWeight,
			MinSeparation:      m.MinSeparation,
		},
		Seed:        m.Seed,
		Parallelism: m.Parallelism,
	}
	if cfg.Coverage.CutoffRadius == 0 {
		cfg.Coverage.CutoffRadius = defaultCutoffRadius
	}
	return cfg
}

func (cfg Config) validate(l *core.Layout) error {
	if cfg.NumAntennas <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("num antennas must be positive, got %d", cfg.NumAntennas)}
	}
	if cfg.NumParticles <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("num particles must be positive, got %d", cfg.NumParticles)}
	}
	if cfg.NumIters <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("num iterations must be positive, got %d", cfg.NumIters)}
	}
	if cfg.NumAntennas > l.PassableCount() {
		return &ConfigurationError{Reason: fmt.Sprintf("%d antennas cannot fit %d passable cells", cfg.NumAntennas, l.PassableCount())}
	}
	if cfg.Coverage.SignalRange <= 0 {
		return &ConfigurationError{Reason: "signal range must be positive"}
	}
	if cfg.Coverage.CutoffRadius <= 0 {
		return &ConfigurationError{Reason: "cutoff radius must be positive"}
	}
	if cfg.Coverage.MinSeparation < 0 {
		return &ConfigurationError{Reason: "min separation must not be negative"}
	}
	if cfg.Parallelism < 0 {
		return &ConfigurationError{Reason: "parallelism must not be negative"}
	}
	return nil
}

// Particle is one member of the swarm: its current placement, velocity, and
// the best placement it has personally seen.
type Particle struct {
	Pos     core.Placement
	Vel     []float64 // row/col velocity per antenna, len = 2*NumAntennas
	Val     float64
	BestPos core.Placement
	BestVal float64
}

// IterationStats is handed to iteration listeners after each completed
// iteration.
type IterationStats struct {
	Iter        int
	BestFitness float64
	Improved    bool
	Duration    time.Duration
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	// Best is the highest-fitness placement found.
	Best    core.Placement
	Fitness float64
	// History records the global-best fitness after each iteration. It is
	// non-decreasing and has one entry per completed iteration.
	History []float64
	// Evaluations counts coverage-model calls performed.
	Evaluations int
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithLogger attaches a structured logger. Defaults to a noop logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCollector attaches Prometheus metrics for the run.
func WithCollector(c *observability.RunCollector) Option {
	return func(o *Optimizer) { o.collector = c }
}

// WithPlanID labels metrics and logs with the floor plan being optimized.
func WithPlanID(id string) Option {
	return func(o *Optimizer) { o.planID = id }
}

// Optimizer drives the swarm over a fixed iteration budget. It is not safe
// for concurrent use; run one Optimizer per goroutine.
type Optimizer struct {
	layout *core.Layout
	cfg    Config
	rng    *rand.Rand

	particles []*Particle
	best      core.Placement
	bestVal   float64
	history   []float64

	evaluations int
	listeners   []func(IterationStats)

	log       logging.Logger
	collector *observability.RunCollector
	planID    string
}

// New validates the configuration and initializes the swarm: every particle
// gets a placement drawn uniformly from the layout's passable cells without
// replacement (no two antennas of one particle share a cell at t=0, which
// would otherwise start the search in a degenerate zero-distance repulsion
// well), and velocities start at zero.
func New(layout *core.Layout, cfg Config, opts ...Option) (*Optimizer, error) {
	if err := cfg.validate(layout); err != nil {
		return nil, err
	}

	o := &Optimizer{
		layout:  layout,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		bestVal: math.Inf(-1),
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	passable := layout.PassableCells()
	o.particles = make([]*Particle, cfg.NumParticles)
	for i := range o.particles {
		pos := make(core.Placement, cfg.NumAntennas)
		for a, idx := range o.rng.Perm(len(passable))[:cfg.NumAntennas] {
			pos[a] = passable[idx]
		}
		o.particles[i] = &Particle{
			Pos:     pos,
			Vel:     make([]float64, 2*cfg.NumAntennas),
			BestPos: pos.Clone(),
			BestVal: math.Inf(-1),
		}
	}

	return o, nil
}

// RegisterIterationListener adds a callback invoked synchronously after each
// iteration, once bests are updated and positions repaired. Listeners may
// inspect the optimizer (e.g. via Placements) but must not mutate it.
func (o *Optimizer) RegisterIterationListener(fn func(IterationStats)) {
	o.listeners = append(o.listeners, fn)
}

// Placements returns a snapshot of every particle's current placement.
func (o *Optimizer) Placements() []core.Placement {
	out := make([]core.Placement, len(o.particles))
	for i, p := range o.particles {
		out[i] = p.Pos.Clone()
	}
	return out
}

// Run executes the fixed iteration budget and returns the best placement
// found, its fitness, and the per-iteration fitness history.
//
// A cancelled context stops the loop between iterations and returns the best
// result so far alongside the context error. Any evaluation error is a
// repair-step defect and aborts the run; it is not caught defensively.
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	ctx, log := logging.WithRunLogger(ctx, o.log)
	runID := logging.RunIDFromContext(ctx)
	log = log.With(logging.String("plan", o.planID))

	tracer := otel.Tracer("github.com/signalsfoundry/antenna-placement-optimizer/swarm")
	ctx, span := tracer.Start(ctx, "optimizer.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("num_antennas", o.cfg.NumAntennas),
		attribute.Int("num_particles", o.cfg.NumParticles),
		attribute.Int("num_iters", o.cfg.NumIters),
	))
	defer span.End()

	o.collector.RunStarted()
	defer o.collector.RunFinished()

	log.Info(ctx, "optimization started",
		logging.Int("num_antennas", o.cfg.NumAntennas),
		logging.Int("num_particles", o.cfg.NumParticles),
		logging.Int("num_iters", o.cfg.NumIters),
		logging.Any("seed", o.cfg.Seed),
	)

	for iter := 0; iter < o.cfg.NumIters; iter++ {
		select {
		case <-ctx.Done():
			log.Warn(ctx, "optimization cancelled",
				logging.Int("completed_iters", iter),
				logging.Float64("best_fitness", o.bestVal),
			)
			return o.result(runID), ctx.Err()
		default:
		}

		start := time.Now()
		if err := o.evaluateAll(); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}
		improved := o.updateBests()
		o.move()
		o.history = append(o.history, o.bestVal)

		d := time.Since(start)
		o.collector.ObserveIteration(d, o.bestVal)
		stats := IterationStats{Iter: iter, BestFitness: o.bestVal, Improved: improved, Duration: d}
		for _, fn := range o.listeners {
			fn(stats)
		}
		if improved {
			log.Debug(ctx, "global best improved",
				logging.Int("iter", iter),
				logging.Float64("best_fitness", o.bestVal),
			)
		}
	}

	span.SetAttributes(attribute.Float64("best_fitness", o.bestVal))
	log.Info(ctx, "optimization finished",
		logging.Float64("best_fitness", o.bestVal),
		logging.Int("evaluations", o.evaluations),
	)
	return o.result(runID), nil
}

func (o *Optimizer) result(runID string) *Result {
	return &Result{
		RunID:       runID,
		Best:        o.best.Clone(),
		Fitness:     o.bestVal,
		History:     append([]float64(nil), o.history...),
		Evaluations: o.evaluations,
	}
}

// evaluateAll scores every particle's current placement. With Parallelism > 1
// a bounded worker pool fans the evaluations out and the WaitGroup forms the
// barrier before the sequential best-update pass; randomness is only consumed
// in move(), so the schedule cannot perturb determinism.
func (o *Optimizer) evaluateAll() error {
	vals := make([]float64, len(o.particles))
	errs := make([]error, len(o.particles))

	if workers := o.cfg.Parallelism; workers > 1 {
		indices := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indices {
					vals[i], errs[i] = core.Evaluate(o.layout, o.particles[i].Pos, o.cfg.Coverage)
				}
			}()
		}
		for i := range o.particles {
			indices <- i
		}
		close(indices)
		wg.Wait()
	} else {
		for i, p := range o.particles {
			vals[i], errs[i] = core.Evaluate(o.layout, p.Pos, o.cfg.Coverage)
		}
	}

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("evaluate particle %d: %w", i, err)
		}
	}
	for i, p := range o.particles {
		p.Val = vals[i]
	}
	o.evaluations += len(o.particles)
	o.collector.AddEvaluations(o.planID, len(o.particles))
	return nil
}

// updateBests refreshes personal and global bests in particle index order.
// Strict comparisons make ties first-wins, which keeps parallel and serial
// runs identical.
func (o *Optimizer) updateBests() bool {
	improved := false
	for _, p := range o.particles {
		if p.Val > p.BestVal {
			p.BestVal = p.Val
			p.BestPos = p.Pos.Clone()
		}
		if p.BestVal > o.bestVal {
			o.bestVal = p.BestVal
			o.best = p.BestPos.Clone()
			improved = true
		}
	}
	return improved
}

// move applies the velocity and position updates:
//
//	v <- w*v + c1*r1*(pbest - pos) + c2*r2*(gbest - pos)
//	pos <- repair(round(pos + v))
//
// r1 and r2 are drawn per coordinate, inside the loop; hoisting them out
// collapses the swarm onto a line. Positions that round onto a wall or
// outside the grid snap to the nearest passable cell.
func (o *Optimizer) move() {
	for _, p := range o.particles {
		for a := 0; a < o.cfg.NumAntennas; a++ {
			pr := float64(p.Pos[a].Row)
			pc := float64(p.Pos[a].Col)

			r1 := o.rng.Float64()
			r2 := o.rng.Float64()
			vr := o.cfg.Inertia*p.Vel[2*a] +
				o.cfg.Cognitive*r1*(float64(p.BestPos[a].Row)-pr) +
				o.cfg.Social*r2*(float64(o.best[a].Row)-pr)

			r1 = o.rng.Float64()
			r2 = o.rng.Float64()
			vc := o.cfg.Inertia*p.Vel[2*a+1] +
				o.cfg.Cognitive*r1*(float64(p.BestPos[a].Col)-pc) +
				o.cfg.Social*r2*(float64(o.best[a].Col)-pc)

			if limit := o.cfg.MaxVelocity; limit > 0 {
				vr = clamp(vr, -limit, limit)
				vc = clamp(vc, -limit, limit)
			}
			p.Vel[2*a] = vr
			p.Vel[2*a+1] = vc

			target := model.Cell{
				Row: int(math.Round(pr + vr)),
				Col: int(math.Round(pc + vc)),
			}
			p.Pos[a] = o.layout.NearestPassable(target)
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
