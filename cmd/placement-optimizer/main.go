package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/antenna-placement-optimizer/core"
	"github.com/signalsfoundry/antenna-placement-optimizer/internal/logging"
	"github.com/signalsfoundry/antenna-placement-optimizer/internal/observability"
	"github.com/signalsfoundry/antenna-placement-optimizer/kb"
	"github.com/signalsfoundry/antenna-placement-optimizer/model"
	"github.com/signalsfoundry/antenna-placement-optimizer/swarm"
)

// overrides are optional YAML tweaks applied on top of the scenario's
// optimizer block. Pointers distinguish "unset" from explicit zeros.
type overrides struct {
	NumAntennas  *int     `yaml:"num_antennas"`
	NumParticles *int     `yaml:"num_particles"`
	NumIters     *int     `yaml:"num_iters"`
	Inertia      *float64 `yaml:"inertia"`
	Cognitive    *float64 `yaml:"cognitive"`
	Social       *float64 `yaml:"social"`
	MaxVelocity  *float64 `yaml:"max_velocity"`
	Seed         *int64   `yaml:"seed"`
	Parallelism  *int     `yaml:"parallelism"`

	SignalRange        *float64 `yaml:"signal_range"`
	CutoffRadius       *float64 `yaml:"cutoff_radius"`
	RepulsionWeight    *float64 `yaml:"repulsion_weight"`
	CriticalZoneWeight *float64 `yaml:"critical_zone_weight"`
	MinSeparation      *float64 `yaml:"min_separation"`
}

func applyOverrides(cfg *swarm.Config, ov overrides) {
	if ov.NumAntennas != nil {
		cfg.NumAntennas = *ov.NumAntennas
	}
	if ov.NumParticles != nil {
		cfg.NumParticles = *ov.NumParticles
	}
	if ov.NumIters != nil {
		cfg.NumIters = *ov.NumIters
	}
	if ov.Inertia != nil {
		cfg.Inertia = *ov.Inertia
	}
	if ov.Cognitive != nil {
		cfg.Cognitive = *ov.Cognitive
	}
	if ov.Social != nil {
		cfg.Social = *ov.Social
	}
	if ov.MaxVelocity != nil {
		cfg.MaxVelocity = *ov.MaxVelocity
	}
	if ov.Seed != nil {
		cfg.Seed = *ov.Seed
	}
	if ov.Parallelism != nil {
		cfg.Parallelism = *ov.Parallelism
	}
	if ov.SignalRange != nil {
		cfg.Coverage.SignalRange = *ov.SignalRange
	}
	if ov.CutoffRadius != nil {
		cfg.Coverage.CutoffRadius = *ov.CutoffRadius
	}
	if ov.RepulsionWeight != nil {
		cfg.Coverage.RepulsionWeight = *ov.RepulsionWeight
	}
	if ov.CriticalZoneWeight != nil {
		cfg.Coverage.CriticalZoneWeight = *ov.CriticalZoneWeight
	}
	if ov.MinSeparation != nil {
		cfg.Coverage.MinSeparation = *ov.MinSeparation
	}
}

// resultJSON is what the binary prints for presentation-layer consumers
// (heatmap renderers, convergence plotters); the core stays I/O-free.
type resultJSON struct {
	RunID       string       `json:"run_id"`
	Plan        string       `json:"plan"`
	Fitness     float64      `json:"fitness"`
	Placement   []model.Cell `json:"placement"`
	History     []float64    `json:"history"`
	Evaluations int          `json:"evaluations"`
	Elapsed     string       `json:"elapsed"`

	Signal  [][]float64 `json:"signal,omitempty"`
	Overlap [][]int     `json:"overlap,omitempty"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "path to the JSON scenario file (required)")
	configPath := flag.String("config", "", "optional YAML file overriding the scenario's optimizer settings")
	metricsAddr := flag.String("metrics-addr", "", "listen address for the Prometheus /metrics endpoint (empty = disabled)")
	emitField := flag.Bool("field", false, "include the best placement's coverage and overlap grids in the output")
	seed := flag.Int64("seed", 0, "override the scenario's random seed")
	flag.Parse()

	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	log := logging.NewFromEnv()
	ctx := logging.ContextWithLogger(context.Background(), log)

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: placement-optimizer -scenario <file.json> [-config <file.yaml>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		fatal(ctx, "tracing init failed", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	store := kb.NewStore()
	scenario, err := core.LoadScenarioFile(store, *scenarioPath)
	if err != nil {
		fatal(ctx, "scenario load failed", err)
	}

	layout, err := core.NewLayout(scenario.Plan)
	if err != nil {
		fatal(ctx, "layout construction failed", err)
	}

	cfg := swarm.ConfigFromModel(scenario.Optimizer)
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			fatal(ctx, "config read failed", err)
		}
		var ov overrides
		if err := yaml.Unmarshal(raw, &ov); err != nil {
			fatal(ctx, "config parse failed", err)
		}
		applyOverrides(&cfg, ov)
	}
	if seedSet {
		cfg.Seed = *seed
	}

	var collector *observability.RunCollector
	if *metricsAddr != "" {
		collector, err = observability.NewRunCollector(nil)
		if err != nil {
			fatal(ctx, "metrics init failed", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "metrics endpoint listening", logging.String("addr", *metricsAddr))
	}

	opts := []swarm.Option{
		swarm.WithLogger(log),
		swarm.WithPlanID(scenario.Plan.ID),
	}
	if collector != nil {
		opts = append(opts, swarm.WithCollector(collector))
	}
	opt, err := swarm.New(layout, cfg, opts...)
	if err != nil {
		fatal(ctx, "optimizer construction failed", err)
	}

	start := time.Now()
	res, err := opt.Run(ctx)
	if err != nil {
		fatal(ctx, "optimization failed", err)
	}
	elapsed := time.Since(start)

	if err := store.RecordRun(kb.RunRecord{
		RunID:       res.RunID,
		FloorPlanID: scenario.Plan.ID,
		Fitness:     res.Fitness,
		Placement:   res.Best,
		CompletedAt: time.Now().UTC(),
	}); err != nil {
		log.Warn(ctx, "run record failed", logging.String("error", err.Error()))
	}

	out := resultJSON{
		RunID:       res.RunID,
		Plan:        scenario.Plan.ID,
		Fitness:     res.Fitness,
		Placement:   res.Best,
		History:     res.History,
		Evaluations: res.Evaluations,
		Elapsed:     elapsed.String(),
	}
	if *emitField {
		_, field, err := core.EvaluateField(layout, res.Best, cfg.Coverage)
		if err != nil {
			fatal(ctx, "coverage field computation failed", err)
		}
		out.Signal = field.SignalGrid()
		out.Overlap = field.OverlapGrid()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal(ctx, "result encoding failed", err)
	}
}

func fatal(ctx context.Context, msg string, err error) {
	log := logging.LoggerFromContext(ctx)
	if log == nil {
		log = logging.NewFromEnv()
	}
	log.Error(ctx, msg, logging.String("error", err.Error()))
	os.Exit(1)
}
