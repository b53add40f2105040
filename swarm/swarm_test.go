package swarm_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/signalsfoundry/antenna-placement-optimizer/core"
	"github.com/signalsfoundry/antenna-placement-optimizer/model"
	"github.com/signalsfoundry/antenna-placement-optimizer/swarm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// openLayout builds an all-passable rows x cols layout.
func openLayout(t *testing.T, rows, cols int) *core.Layout {
	t.Helper()
	l, err := core.NewLayout(&model.FloorPlan{ID: "open", Rows: rows, Cols: cols})
	require.NoError(t, err)
	return l
}

// warehouseLayout compiles the reference warehouse map with a couple of
// corridors and interior walls.
func warehouseLayout(t *testing.T) *core.Layout {
	t.Helper()
	plan, err := core.ParseGrid([]string{
		"##########",
		"#...#....#",
		"#.#.#.##.#",
		"#........#",
		"#...#....#",
		"##########",
	})
	require.NoError(t, err)
	plan.ID = "warehouse"
	l, err := core.NewLayout(plan)
	require.NoError(t, err)
	return l
}

func baseConfig() swarm.Config {
	return swarm.Config{
		NumAntennas:  2,
		NumParticles: 6,
		NumIters:     15,
		Inertia:      0.5,
		Cognitive:    1.5,
		Social:       1.5,
		Coverage: core.CoverageParams{
			SignalRange:        1.5,
			CutoffRadius:       6,
			RepulsionWeight:    0.7,
			CriticalZoneWeight: 1.8,
			MinSeparation:      2,
		},
		Seed: 7,
	}
}

func TestNewValidation(t *testing.T) {
	layout := warehouseLayout(t)

	tests := []struct {
		name   string
		mutate func(cfg *swarm.Config)
	}{
		{"zero antennas", func(cfg *swarm.Config) { cfg.NumAntennas = 0 }},
		{"negative particles", func(cfg *swarm.Config) { cfg.NumParticles = -1 }},
		{"zero iterations", func(cfg *swarm.Config) { cfg.NumIters = 0 }},
		{"more antennas than passable cells", func(cfg *swarm.Config) { cfg.NumAntennas = layout.PassableCount() + 1 }},
		{"zero signal range", func(cfg *swarm.Config) { cfg.Coverage.SignalRange = 0 }},
		{"zero cutoff radius", func(cfg *swarm.Config) { cfg.Coverage.CutoffRadius = 0 }},
		{"negative separation", func(cfg *swarm.Config) { cfg.Coverage.MinSeparation = -1 }},
		{"negative parallelism", func(cfg *swarm.Config) { cfg.Parallelism = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			_, err := swarm.New(layout, cfg)
			var ce *swarm.ConfigurationError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestRunDeterminism(t *testing.T) {
	layout := warehouseLayout(t)
	cfg := baseConfig()

	run := func() *swarm.Result {
		opt, err := swarm.New(layout, cfg)
		require.NoError(t, err)
		res, err := opt.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	first := run()
	second := run()

	assert.Equal(t, first.Fitness, second.Fitness)
	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.History, second.History, "fitness histories must be bit-identical for a fixed seed")
}

func TestRunHistoryMonotone(t *testing.T) {
	layout := warehouseLayout(t)

	for _, seed := range []int64{1, 2, 3, 99, 12345} {
		cfg := baseConfig()
		cfg.Seed = seed
		opt, err := swarm.New(layout, cfg)
		require.NoError(t, err)

		res, err := opt.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, res.History, cfg.NumIters)

		for i := 1; i < len(res.History); i++ {
			assert.GreaterOrEqual(t, res.History[i], res.History[i-1],
				"seed %d: history dipped at iteration %d", seed, i)
		}
		assert.Equal(t, res.History[len(res.History)-1], res.Fitness)
	}
}

func TestRunBoundsPreserved(t *testing.T) {
	layout := warehouseLayout(t)
	cfg := baseConfig()
	cfg.NumAntennas = 3

	opt, err := swarm.New(layout, cfg)
	require.NoError(t, err)

	iterations := 0
	opt.RegisterIterationListener(func(stats swarm.IterationStats) {
		iterations++
		for pi, placement := range opt.Placements() {
			require.Len(t, placement, cfg.NumAntennas)
			for _, c := range placement {
				require.Truef(t, layout.Passable(c),
					"iteration %d particle %d has antenna on non-passable cell (%d,%d)",
					stats.Iter, pi, c.Row, c.Col)
			}
		}
	})

	_, err = opt.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.NumIters, iterations)
}

func TestRunParallelMatchesSerial(t *testing.T) {
	layout := warehouseLayout(t)

	serialCfg := baseConfig()
	parallelCfg := baseConfig()
	parallelCfg.Parallelism = 4

	serialOpt, err := swarm.New(layout, serialCfg)
	require.NoError(t, err)
	parallelOpt, err := swarm.New(layout, parallelCfg)
	require.NoError(t, err)

	serial, err := serialOpt.Run(context.Background())
	require.NoError(t, err)
	parallel, err := parallelOpt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, serial.History, parallel.History, "parallel evaluation must not perturb the search")
	assert.Equal(t, serial.Best, parallel.Best)
}

func TestRunCancelledContext(t *testing.T) {
	layout := warehouseLayout(t)
	opt, err := swarm.New(layout, baseConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := opt.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res, "a cancelled run still reports the best found so far")
	assert.Empty(t, res.History)
}

func TestRunEvaluationBudget(t *testing.T) {
	layout := warehouseLayout(t)
	cfg := baseConfig()

	opt, err := swarm.New(layout, cfg)
	require.NoError(t, err)
	res, err := opt.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, cfg.NumParticles*cfg.NumIters, res.Evaluations)
}

func TestRunConvergesTowardOpenGridCenter(t *testing.T) {
	// On an unobstructed grid with one antenna and no repulsion, the fitness
	// peaks at the geometric centre, so the search should end up near it.
	layout := openLayout(t, 10, 10)
	cfg := swarm.Config{
		NumAntennas:  1,
		NumParticles: 5,
		NumIters:     20,
		Inertia:      0.5,
		Cognitive:    1.5,
		Social:       1.5,
		Coverage: core.CoverageParams{
			SignalRange:  2,
			CutoffRadius: 6,
		},
		Seed: 1,
	}

	opt, err := swarm.New(layout, cfg)
	require.NoError(t, err)
	res, err := opt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Best, 1)

	dr := float64(res.Best[0].Row) - 4.5
	dc := float64(res.Best[0].Col) - 4.5
	assert.LessOrEqual(t, math.Sqrt(dr*dr+dc*dc), 3.5,
		"best antenna %v should settle near the grid centre", res.Best[0])

	cornerFitness, err := core.Evaluate(layout, core.Placement{{Row: 0, Col: 0}}, cfg.Coverage)
	require.NoError(t, err)
	assert.Greater(t, res.Fitness, cornerFitness,
		"centre-adjacent placements must dominate a corner placement")
}

func TestGlobalBestDominatesPersonalBests(t *testing.T) {
	layout := warehouseLayout(t)
	cfg := baseConfig()

	opt, err := swarm.New(layout, cfg)
	require.NoError(t, err)

	var lastBest float64
	opt.RegisterIterationListener(func(stats swarm.IterationStats) {
		lastBest = stats.BestFitness
	})

	res, err := opt.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Fitness, lastBest)
}
