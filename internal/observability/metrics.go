package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector bundles Prometheus metrics for placement-optimization runs and
// provides a ready-made /metrics handler.
type RunCollector struct {
	gatherer prometheus.Gatherer

	Evaluations        *prometheus.CounterVec
	Iterations         prometheus.Counter
	IterationDurations prometheus.Histogram

	BestFitness prometheus.Gauge
	ActiveRuns  prometheus.Gauge
}

// NewRunCollector registers optimizer Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placement_evaluations_total",
		Help: "Total number of coverage-model fitness evaluations, labeled by floor plan.",
	}, []string{"plan"})
	evaluations, err := registerCounterVec(reg, evaluations, "placement_evaluations_total")
	if err != nil {
		return nil, err
	}

	iterations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placement_iterations_total",
		Help: "Total number of completed optimizer iterations.",
	}), "placement_iterations_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placement_iteration_duration_seconds",
		Help:    "Optimizer iteration latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
	durations, err = registerHistogram(reg, durations, "placement_iteration_duration_seconds")
	if err != nil {
		return nil, err
	}

	bestFitness, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placement_best_fitness",
		Help: "Global-best fitness of the most recent optimizer iteration.",
	}), "placement_best_fitness")
	if err != nil {
		return nil, err
	}

	activeRuns, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placement_active_runs",
		Help: "Number of optimization runs currently in progress.",
	}), "placement_active_runs")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:           gatherer,
		Evaluations:        evaluations,
		Iterations:         iterations,
		IterationDurations: durations,
		BestFitness:        bestFitness,
		ActiveRuns:         activeRuns,
	}, nil
}

// RunStarted marks a run as in progress.
func (c *RunCollector) RunStarted() {
	if c == nil {
		return
	}
	if c.ActiveRuns != nil {
		c.ActiveRuns.Inc()
	}
}

// RunFinished marks a run as complete.
func (c *RunCollector) RunFinished() {
	if c == nil {
		return
	}
	if c.ActiveRuns != nil {
		c.ActiveRuns.Dec()
	}
}

// ObserveIteration records one completed iteration: its duration and the
// global-best fitness after it.
func (c *RunCollector) ObserveIteration(d time.Duration, bestFitness float64) {
	if c == nil {
		return
	}
	if c.Iterations != nil {
		c.Iterations.Inc()
	}
	if c.IterationDurations != nil {
		c.IterationDurations.Observe(d.Seconds())
	}
	if c.BestFitness != nil {
		c.BestFitness.Set(bestFitness)
	}
}

// AddEvaluations counts fitness evaluations performed for a floor plan.
func (c *RunCollector) AddEvaluations(plan string, n int) {
	if c == nil || c.Evaluations == nil {
		return
	}
	c.Evaluations.WithLabelValues(plan).Add(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
