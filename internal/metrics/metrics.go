// Package metrics exposes Prometheus collectors for saliency runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "simsal"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Pipeline stages observed by StageSeconds.
const (
	StagePerturb  = "perturb"
	StageOcclude  = "occlude"
	StageDescribe = "describe"
	StageScore    = "score"
)

// Metrics owns a private registry so several instances can coexist in one
// process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PipelineRuns *prometheus.CounterVec
	StageSeconds *prometheus.HistogramVec
	Descriptors  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Saliency pipeline runs by outcome.",
		}, []string{"status"}),
		StageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		Descriptors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "descriptors_total",
			Help:      "Feature vectors obtained from the descriptor source.",
		}),
	}

	m.registry.MustRegister(
		m.PipelineRuns,
		m.StageSeconds,
		m.Descriptors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddDescriptors(n int) {
	if m == nil {
		return
	}
	m.Descriptors.Add(float64(n))
}

// RunFinished counts a run as a success when err is nil.
func (m *Metrics) RunFinished(err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
}
