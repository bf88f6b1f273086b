// Package prom exports scope observer events as Prometheus metrics.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer implements the scope.Observer interface on top of a Prometheus
// registerer. One Observer may serve any number of scopes.
type Observer struct {
	scopesCreated   prometheus.Counter
	scopesCancelled prometheus.Counter
	joins           prometheus.Counter
	joinWait        prometheus.Histogram

	activeTasks   prometheus.Gauge
	tasksStarted  prometheus.Counter
	tasksFinished *prometheus.CounterVec
	taskDuration  prometheus.Histogram
}

// New registers the observer's collectors with reg and returns the observer.
func New(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		scopesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "scoped_scopes_created_total",
			Help: "Scopes created.",
		}),
		scopesCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "scoped_scopes_cancelled_total",
			Help: "Scopes cancelled before or during their drain.",
		}),
		joins: f.NewCounter(prometheus.CounterOpts{
			Name: "scoped_scope_joins_total",
			Help: "Completed scope drains.",
		}),
		joinWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoped_scope_join_wait_seconds",
			Help:    "Wall-clock time a drain spent waiting for outstanding tasks.",
			Buckets: prometheus.DefBuckets,
		}),
		activeTasks: f.NewGauge(prometheus.GaugeOpts{
			Name: "scoped_tasks_active",
			Help: "Tasks currently executing.",
		}),
		tasksStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "scoped_tasks_started_total",
			Help: "Tasks that began executing.",
		}),
		tasksFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scoped_tasks_finished_total",
			Help: "Tasks retired, by outcome.",
		}, []string{"outcome"}),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoped_task_duration_seconds",
			Help:    "Task execution time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (o *Observer) ScopeCreated(_ context.Context) { o.scopesCreated.Inc() }

func (o *Observer) ScopeCancelled(_ context.Context, _ error) { o.scopesCancelled.Inc() }

func (o *Observer) ScopeJoined(_ context.Context, wait time.Duration) {
	o.joins.Inc()
	o.joinWait.Observe(wait.Seconds())
}

func (o *Observer) TaskStarted(_ context.Context) {
	o.activeTasks.Inc()
	o.tasksStarted.Inc()
}

func (o *Observer) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	o.activeTasks.Dec()
	outcome := "ok"
	switch {
	case panicked:
		outcome = "panic"
	case err != nil:
		outcome = "error"
	}
	o.tasksFinished.WithLabelValues(outcome).Inc()
	o.taskDuration.Observe(dur.Seconds())
}
