package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsDispatchedTotal counts jobs the dispatcher finished, by outcome.
	JobsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_jobs_dispatched_total",
		Help: "Number of jobs processed by the dispatcher, labeled by outcome.",
	}, []string{"outcome"})

	// DeliveryDuration tracks sink delivery latency per job.
	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_delivery_duration_seconds",
		Help:    "Time taken to deliver a single job to the sink.",
		Buckets: prometheus.DefBuckets,
	})

	// BatchSize tracks how many due jobs each dispatch cycle claimed.
	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_batch_size",
		Help:    "Number of due jobs claimed per dispatch cycle.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
)
