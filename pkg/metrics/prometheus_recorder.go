package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "corestress"

// PrometheusRecorder implements Recorder using Prometheus metrics
type PrometheusRecorder struct {
	buildDuration *prom.HistogramVec
	coreDuration  *prom.HistogramVec
	runDuration   prom.Histogram
	buildOutcome  *prom.CounterVec
	cleanFailures *prom.CounterVec
	currentRun    prom.Gauge
}

// buildBuckets spans quick incremental crates up to large workspaces
var buildBuckets = prom.ExponentialBuckets(1, 2, 12)

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of individual pinned builds",
			Buckets:   buildBuckets,
		}, []string{"project", "core"}),
		coreDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "core_duration_seconds",
			Help:      "Time spent stressing one core with the full project list",
			Buckets:   buildBuckets,
		}, []string{"core"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full core x project pass",
			Buckets:   buildBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		cleanFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "clean_failures_total",
			Help:      "Clean operations that failed and were ignored",
		}, []string{"project"}),
		currentRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "current_run",
			Help:      "Zero-based index of the run in progress",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.coreDuration, pr.runDuration, pr.buildOutcome, pr.cleanFailures, pr.currentRun)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(project string, core int, d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.WithLabelValues(project, strconv.Itoa(core)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCoreDuration(core int, d time.Duration) {
	if p == nil {
		return
	}
	p.coreDuration.WithLabelValues(strconv.Itoa(core)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCleanFailure(project string) {
	if p == nil {
		return
	}
	p.cleanFailures.WithLabelValues(project).Inc()
}

func (p *PrometheusRecorder) SetCurrentRun(run int) {
	if p == nil {
		return
	}
	p.currentRun.Set(float64(run))
}
