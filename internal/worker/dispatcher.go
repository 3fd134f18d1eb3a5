// Package worker dispatches due notification jobs to the delivery sink.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/unihub/dispatch/internal/config"
	"github.com/unihub/dispatch/internal/job"
	"github.com/unihub/dispatch/internal/jobstore"
	"github.com/unihub/dispatch/internal/sink"
)

// Deliverer posts a composed notification to the delivery sink.
type Deliverer interface {
	Deliver(ctx context.Context, req *sink.Request) (int, error)
}

var _ Deliverer = (*sink.Client)(nil)

// Dispatcher claims due jobs and delivers them. One failed delivery
// never blocks the rest of a batch, and a job is marked exactly once:
// done on success (removed), failed with a reason on error (retained,
// not retried).
type Dispatcher struct {
	jobs            jobstore.Store
	sink            Deliverer
	feedbackBaseURL string
	popLimit        int
	concurrency     int
	deliveryTimeout time.Duration
	log             zerolog.Logger
	now             func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(jobs jobstore.Store, deliverer Deliverer, jobsCfg config.JobsConfig, dispatchCfg config.DispatchConfig, feedbackBaseURL string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:            jobs,
		sink:            deliverer,
		feedbackBaseURL: feedbackBaseURL,
		popLimit:        jobsCfg.PopLimit,
		concurrency:     dispatchCfg.Concurrency,
		deliveryTimeout: dispatchCfg.DeliveryTimeout,
		log:             log,
		now:             time.Now,
	}
}

// DispatchDue claims every due job up to the pop limit and delivers
// them with bounded concurrency. It returns the number of jobs claimed.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	batch, err := d.jobs.PopDue(ctx, d.now(), d.popLimit)
	if err != nil {
		return 0, err
	}

	BatchSize.Observe(float64(len(batch)))
	if len(batch) == 0 {
		return 0, nil
	}

	d.log.Debug().Int("claimed", len(batch)).Msg("dispatching due jobs")

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	for i := range batch {
		sem <- struct{}{}
		wg.Add(1)
		go func(j *job.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			d.dispatchOne(ctx, j)
		}(&batch[i])
	}
	wg.Wait()

	return len(batch), nil
}

// dispatchOne delivers a single claimed job and records the outcome.
// The delivery call is bounded by the configured timeout so one slow
// sink response cannot stall the whole cycle.
func (d *Dispatcher) dispatchOne(ctx context.Context, j *job.Job) {
	log := d.log.With().
		Str("identity", j.Identity).
		Str("kind", j.Kind.String()).
		Str("event_id", j.Payload.EventID).
		Logger()

	deliverCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	req := &sink.Request{
		EventID:        j.Payload.EventID,
		EventName:      j.Payload.Event.Title,
		OrganizerID:    j.Payload.Event.OrganizerID,
		OrganizerEmail: j.Payload.Event.OrganizerEmail,
		Recipients: []sink.Recipient{{
			Email: j.Payload.Recipient.Email,
			Name:  j.Payload.Recipient.Name,
		}},
		Message: sink.Compose(j, d.feedbackBaseURL),
	}

	start := time.Now()
	sent, err := d.sink.Deliver(deliverCtx, req)
	DeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error().Err(err).Msg("delivery failed")
		JobsDispatchedTotal.WithLabelValues("failed").Inc()

		if markErr := d.jobs.MarkFailed(ctx, j.Identity, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("recording delivery failure failed")
		}
		return
	}

	log.Info().Int("sent", sent).Msg("job delivered")
	JobsDispatchedTotal.WithLabelValues("delivered").Inc()

	if markErr := d.jobs.MarkDone(ctx, j.Identity); markErr != nil {
		log.Error().Err(markErr).Msg("recording delivery success failed")
	}
}
