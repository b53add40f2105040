package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRunCollectorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}

	collector.RunStarted()
	collector.AddEvaluations("warehouse-1", 80)
	collector.ObserveIteration(12*time.Millisecond, 1.75)
	collector.ObserveIteration(9*time.Millisecond, 2.5)
	collector.RunFinished()

	if got := testutil.ToFloat64(collector.Evaluations.WithLabelValues("warehouse-1")); got != 80 {
		t.Fatalf("placement_evaluations_total = %v, want 80", got)
	}
	if got := testutil.ToFloat64(collector.Iterations); got != 2 {
		t.Fatalf("placement_iterations_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.BestFitness); got != 2.5 {
		t.Fatalf("placement_best_fitness = %v, want 2.5", got)
	}
	if got := testutil.ToFloat64(collector.ActiveRuns); got != 0 {
		t.Fatalf("placement_active_runs = %v, want 0 after RunFinished", got)
	}

	if count := histogramSampleCount(t, reg, "placement_iteration_duration_seconds"); count != 2 {
		t.Fatalf("placement_iteration_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestRunCollectorActiveRunsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}

	collector.RunStarted()
	collector.RunStarted()
	if got := testutil.ToFloat64(collector.ActiveRuns); got != 2 {
		t.Fatalf("placement_active_runs = %v, want 2", got)
	}
	collector.RunFinished()
	if got := testutil.ToFloat64(collector.ActiveRuns); got != 1 {
		t.Fatalf("placement_active_runs = %v, want 1", got)
	}
}

func TestNewRunCollectorIdempotentRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("first NewRunCollector: %v", err)
	}
	second, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("second NewRunCollector on same registry: %v", err)
	}

	// Both collectors must share the underlying metrics.
	first.Iterations.Inc()
	if got := testutil.ToFloat64(second.Iterations); got != 1 {
		t.Fatalf("expected shared iterations counter, got %v", got)
	}
}

func TestRunCollectorHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}
	collector.ObserveIteration(time.Millisecond, 0.5)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics handler status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "placement_best_fitness") {
		t.Fatalf("metrics output missing placement_best_fitness:\n%s", body)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *RunCollector
	c.RunStarted()
	c.RunFinished()
	c.ObserveIteration(time.Millisecond, 1)
	c.AddEvaluations("plan", 10)
}

func histogramSampleCount(t *testing.T, g prometheus.Gatherer, name string) uint64 {
	t.Helper()
	var families []*dto.MetricFamily
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if h := m.GetHistogram(); h != nil {
				return h.GetSampleCount()
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
