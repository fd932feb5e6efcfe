package jobs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects statistics of processed jobs.
type Metrics struct {
	registry *prometheus.Registry

	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  *prometheus.GaugeVec
	sweeps    *prometheus.CounterVec
}

// NewMetrics creates a collector with its own prometheus registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gntree"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.processed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Number of processed jobs by type and outcome",
		},
		[]string{"type", "status"},
	)

	m.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Duration of job runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"type"},
	)

	m.inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "in_flight",
			Help:      "Number of running jobs",
		},
		[]string{"type"},
	)

	m.sweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "duplicates",
			Name:      "merged_total",
			Help:      "Number of taxa merged by duplicate sweeps",
		},
		[]string{"status"},
	)

	m.registry.MustRegister(m.processed, m.duration, m.inFlight, m.sweeps)
	return m
}

// Registry returns the prometheus registry of the collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) started(jobType string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(jobType).Inc()
}

func (m *Metrics) finished(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(jobType).Dec()
	m.processed.WithLabelValues(jobType, status).Inc()
	m.duration.WithLabelValues(jobType).Observe(dur.Seconds())
}

// ObserveSweep records the outcome of a duplicates sweep.
func (m *Metrics) ObserveSweep(merged, failed int) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues("merged").Add(float64(merged))
	m.sweeps.WithLabelValues("failed").Add(float64(failed))
}
