// Package sweep produces reminder and feedback notification jobs by
// scanning event records on a schedule.
package sweep

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unihub/dispatch/internal/events"
	"github.com/unihub/dispatch/internal/identity"
	"github.com/unihub/dispatch/internal/job"
	"github.com/unihub/dispatch/internal/jobstore"
	"github.com/unihub/dispatch/internal/logger"
)

const (
	// reminderWindow is how far ahead the reminder sweep looks. Events
	// dated inside [now, now+reminderWindow] get a reminder.
	reminderWindow = 48 * time.Hour

	// feedbackFrom and feedbackTo bound the feedback sweep's look-back.
	// Events dated inside [now-feedbackFrom, now-feedbackTo) have
	// concluded recently enough to ask about.
	feedbackFrom = 48 * time.Hour
	feedbackTo   = 24 * time.Hour
)

var (
	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_sweep_runs_total",
		Help: "Number of sweep runs, by kind.",
	}, []string{"kind"})

	sweepJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_sweep_jobs_enqueued_total",
		Help: "Number of jobs enqueued by sweeps, by kind.",
	}, []string{"kind"})
)

// Resolver turns a user id into contact details.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*identity.User, error)
}

var _ Resolver = (*identity.Client)(nil)

// Summary reports what a sweep run covered.
type Summary struct {
	Events   int
	Enqueued int
	Skipped  int
}

// Sweeper scans events and enqueues due-now notification jobs. Each
// run is idempotent within a calendar day: job identities carry a day
// bucket, so a re-run replaces its own pending jobs instead of
// duplicating them.
type Sweeper struct {
	events   events.Store
	jobs     jobstore.Store
	resolver Resolver
	now      func() time.Time
}

// NewSweeper creates a Sweeper.
func NewSweeper(ev events.Store, jobs jobstore.Store, resolver Resolver) *Sweeper {
	return &Sweeper{
		events:   ev,
		jobs:     jobs,
		resolver: resolver,
		now:      time.Now,
	}
}

// RunReminderSweep enqueues a reminder job for every RSVP on events
// happening within the next two days. A single bad recipient or event
// is skipped, not fatal.
func (s *Sweeper) RunReminderSweep(ctx context.Context) (Summary, error) {
	now := s.now()
	sweepRunsTotal.WithLabelValues(job.KindReminder.String()).Inc()

	list, err := s.events.ListUpcoming(ctx, now, now.Add(reminderWindow))
	if err != nil {
		return Summary{}, err
	}

	return s.enqueueFor(ctx, job.KindReminder, list, now), nil
}

// RunFeedbackSweep enqueues a feedback job for every RSVP on events
// that concluded between one and two days ago.
func (s *Sweeper) RunFeedbackSweep(ctx context.Context) (Summary, error) {
	now := s.now()
	sweepRunsTotal.WithLabelValues(job.KindFeedback.String()).Inc()

	list, err := s.events.ListConcluded(ctx, now.Add(-feedbackFrom), now.Add(-feedbackTo))
	if err != nil {
		return Summary{}, err
	}

	return s.enqueueFor(ctx, job.KindFeedback, list, now), nil
}

func (s *Sweeper) enqueueFor(ctx context.Context, kind job.Kind, list []events.Event, now time.Time) Summary {
	log := logger.FromContext(ctx)
	sum := Summary{Events: len(list)}

	for i := range list {
		ev := &list[i]

		userIDs, err := s.events.ListRSVPs(ctx, ev.ID)
		if err != nil {
			log.Error().Err(err).
				Str("event_id", ev.ID).
				Str("kind", kind.String()).
				Msg("sweep: listing rsvps failed, event skipped")
			sum.Skipped++
			continue
		}

		for _, userID := range userIDs {
			if err := s.enqueueOne(ctx, kind, ev, userID, now); err != nil {
				log.Warn().Err(err).
					Str("event_id", ev.ID).
					Str("user_id", userID).
					Str("kind", kind.String()).
					Msg("sweep: recipient skipped")
				sum.Skipped++
				continue
			}
			sum.Enqueued++
		}
	}

	sweepJobsTotal.WithLabelValues(kind.String()).Add(float64(sum.Enqueued))
	log.Info().
		Str("kind", kind.String()).
		Int("events", sum.Events).
		Int("enqueued", sum.Enqueued).
		Int("skipped", sum.Skipped).
		Msg("sweep finished")

	return sum
}

func (s *Sweeper) enqueueOne(ctx context.Context, kind job.Kind, ev *events.Event, userID string, now time.Time) error {
	user, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	j := job.New(
		job.SweepIdentity(kind, ev.ID, userID, now),
		kind,
		job.Payload{
			EventID:   ev.ID,
			Event:     ev.Snapshot(),
			Recipient: job.Recipient{Email: user.Email, Name: user.Name},
		},
		now,
	)

	return s.jobs.Enqueue(ctx, j)
}
