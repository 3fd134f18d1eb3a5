package jobstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job store metrics for Prometheus monitoring.
var (
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_enqueued_total",
			Help: "Total number of jobs enqueued by kind",
		},
		[]string{"kind"},
	)

	JobsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_cancelled_total",
			Help: "Total number of pending jobs cancelled before delivery",
		},
	)

	JobsClaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_claimed_total",
			Help: "Total number of due jobs claimed for delivery",
		},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_completed_total",
			Help: "Total number of jobs finished by outcome",
		},
		[]string{"outcome"}, // done, failed
	)
)
