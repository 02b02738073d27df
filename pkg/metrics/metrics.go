package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "facultymeet"

var (
	PgErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pg",
		Name:      "pg_err_count",
	}, []string{"method"})
	PgDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pg",
		Name:      "pg_duration",
	}, []string{"method"})
)

var (
	MeetingsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "meetings",
		Name:      "scheduled_total",
	})
	// MeetingConflicts is labelled by outcome: blocked, overridable, overridden.
	MeetingConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "meetings",
		Name:      "conflicts_total",
	}, []string{"outcome"})
	MeetingsAutoEnded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sweep",
		Name:      "auto_ended_total",
	})
	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sweep",
		Name:      "failures_total",
	})
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifier",
		Name:      "sent_total",
	}, []string{"kind", "result"})
)
