package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "retract"

// promVectors mirrors the in-process counters as Prometheus metrics.
type promVectors struct {
	registry    *prometheus.Registry
	deletions   *prometheus.CounterVec
	extractions *prometheus.CounterVec
	executions  *prometheus.CounterVec
	reviews     *prometheus.CounterVec
	reprocessed *prometheus.CounterVec
	admin       *prometheus.CounterVec
	errors      *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	memory      prometheus.Gauge
}

func newPromVectors() *promVectors {
	v := &promVectors{
		registry: prometheus.NewRegistry(),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_processed_total",
			Help:      "Deletion events processed, by chosen action, reason and content type.",
		}, []string{"action", "reason", "type"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_extractions_total",
			Help:      "Context extractions, by context type and cache outcome.",
		}, []string{"type", "cache"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executor_actions_total",
			Help:      "Transcript actions executed, by action and result.",
		}, []string{"action", "result"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_status_changes_total",
			Help:      "Review status changes, by new status.",
		}, []string{"status"}),
		reprocessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reprocessed_total",
			Help:      "Review records reprocessed, by result.",
		}, []string{"result"}),
		admin: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_commands_total",
			Help:      "Admin commands handled, by command and result.",
		}, []string{"command", "result"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors recorded, by component.",
		}, []string{"component"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of timed operations.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		memory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Heap bytes allocated at the last memory sample.",
		}),
	}

	v.registry.MustRegister(
		v.deletions, v.extractions, v.executions, v.reviews, v.reprocessed,
		v.admin, v.errors, v.durations, v.memory,
		collectors.NewGoCollector(),
	)

	return v
}

func result(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}
