// Package metrics exposes prometheus collectors for schedule regeneration
// and task completion.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	regenerations      *prometheus.CounterVec
	regenerationTime   prometheus.Histogram
	tasksCreated       prometheus.Counter
	tasksDeleted       prometheus.Counter
	unitsSkipped       prometheus.Counter
	tasksCompleted     *prometheus.CounterVec
	lastRegenerationAt prometheus.Gauge
}

// New creates a Recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		regenerations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiln_schedule_regenerations_total",
				Help: "Schedule regenerations by result",
			},
			[]string{"result"},
		),
		regenerationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kiln_schedule_regeneration_duration_seconds",
			Help:    "Wall time of schedule regenerations",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		tasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiln_schedule_tasks_created_total",
			Help: "Tasks inserted by regenerations",
		}),
		tasksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiln_schedule_tasks_deleted_total",
			Help: "Pending tasks discarded by regenerations",
		}),
		unitsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiln_schedule_units_skipped_total",
			Help: "Pieces or stages left out of a regenerated schedule",
		}),
		tasksCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kiln_tasks_completed_total",
				Help: "Completed tasks, by whether the piece advanced a stage",
			},
			[]string{"advanced"},
		),
		lastRegenerationAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_schedule_last_success_timestamp_seconds",
			Help: "Unix time of the last successful regeneration",
		}),
	}

	r.registry.MustRegister(
		r.regenerations,
		r.regenerationTime,
		r.tasksCreated,
		r.tasksDeleted,
		r.unitsSkipped,
		r.tasksCompleted,
		r.lastRegenerationAt,
		collectors.NewGoCollector(),
	)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRegeneration records one regeneration attempt.
func (r *Recorder) ObserveRegeneration(result string, elapsed time.Duration, created, deleted, skipped int) {
	if r == nil {
		return
	}
	r.regenerations.WithLabelValues(result).Inc()
	r.regenerationTime.Observe(elapsed.Seconds())
	r.tasksCreated.Add(float64(created))
	r.tasksDeleted.Add(float64(deleted))
	r.unitsSkipped.Add(float64(skipped))
	if result == "success" || result == "partial" {
		r.lastRegenerationAt.SetToCurrentTime()
	}
}

// ObserveTaskCompleted records one task completion.
func (r *Recorder) ObserveTaskCompleted(advanced bool) {
	if r == nil {
		return
	}
	label := "false"
	if advanced {
		label = "true"
	}
	r.tasksCompleted.WithLabelValues(label).Inc()
}
