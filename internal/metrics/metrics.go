// Package metrics registers the Prometheus collectors shared by the API
// and worker tiers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process's collectors.
type Metrics struct {
	TasksProcessed *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	QueueDepth     prometheus.Gauge

	MetersIngested   prometheus.Counter
	ReadingsIngested prometheus.Counter

	ScenariosRun *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors on a registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navigader",
			Subsystem: "worker",
			Name:      "tasks_processed_total",
			Help:      "Tasks processed by kind and outcome.",
		}, []string{"kind", "outcome"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "navigader",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Task processing time by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "navigader",
			Subsystem: "worker",
			Name:      "queue_depth",
			Help:      "Pending tasks on the queue.",
		}),
		MetersIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "navigader",
			Subsystem: "ingest",
			Name:      "meters_total",
			Help:      "Meters ingested.",
		}),
		ReadingsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "navigader",
			Subsystem: "ingest",
			Name:      "readings_total",
			Help:      "Interval readings ingested.",
		}),
		ScenariosRun: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navigader",
			Subsystem: "scenario",
			Name:      "runs_total",
			Help:      "Scenario runs by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navigader",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "navigader",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request time by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// NewDefault registers on the default registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
