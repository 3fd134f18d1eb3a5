// Package rsvp implements the RSVP toggle flow and the delayed
// interest-confirmation job it produces.
package rsvp

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/unihub/dispatch/internal/events"
	"github.com/unihub/dispatch/internal/identity"
	"github.com/unihub/dispatch/internal/job"
	"github.com/unihub/dispatch/internal/jobstore"
	"github.com/unihub/dispatch/internal/logger"
)

// Resolver turns a user id into contact details.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*identity.User, error)
}

var _ Resolver = (*identity.Client)(nil)

// Result is the outcome of a toggle, reported back to the caller.
type Result struct {
	Added     bool `json:"added"`
	RSVPCount int  `json:"rsvp_count"`
}

// Service toggles event RSVPs and schedules the matching interest
// notification. The notification side is best effort: a job store or
// identity failure never rolls back the membership change.
type Service struct {
	events     events.Store
	jobs       jobstore.Store
	resolver   Resolver
	graceDelay time.Duration
	now        func() time.Time
}

// NewService creates a Service. graceDelay is how long an interest
// notification stays cancellable before it becomes due.
func NewService(ev events.Store, jobs jobstore.Store, resolver Resolver, graceDelay time.Duration) *Service {
	return &Service{
		events:     ev,
		jobs:       jobs,
		resolver:   resolver,
		graceDelay: graceDelay,
		now:        time.Now,
	}
}

// Toggle flips the user's RSVP on the event. Adding schedules an
// interest job due after the grace delay; removing cancels any pending
// one. The returned error reflects the membership change only.
func (s *Service) Toggle(ctx context.Context, eventID, userID string) (*Result, error) {
	log := logger.FromContext(ctx)

	added, count, err := s.events.ToggleRSVP(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	if added {
		s.scheduleInterest(ctx, log, eventID, userID)
	} else {
		s.cancelInterest(ctx, log, eventID, userID)
	}

	return &Result{Added: added, RSVPCount: count}, nil
}

func (s *Service) scheduleInterest(ctx context.Context, log zerolog.Logger, eventID, userID string) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		log.Error().Err(err).
			Str("event_id", eventID).
			Str("user_id", userID).
			Msg("interest notification skipped: event lookup failed")
		return
	}

	user, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		log.Error().Err(err).
			Str("event_id", eventID).
			Str("user_id", userID).
			Msg("interest notification skipped: user lookup failed")
		return
	}

	j := job.New(
		job.InterestIdentity(eventID, userID),
		job.KindInterest,
		job.Payload{
			EventID:   eventID,
			Event:     ev.Snapshot(),
			Recipient: job.Recipient{Email: user.Email, Name: user.Name},
		},
		s.now().Add(s.graceDelay),
	)

	if err := s.jobs.Enqueue(ctx, j); err != nil {
		log.Error().Err(err).
			Str("identity", j.Identity).
			Msg("interest notification skipped: enqueue failed")
		return
	}

	log.Debug().
		Str("identity", j.Identity).
		Time("ready_at", j.ReadyAt).
		Msg("interest notification scheduled")
}

func (s *Service) cancelInterest(ctx context.Context, log zerolog.Logger, eventID, userID string) {
	id := job.InterestIdentity(eventID, userID)

	cancelled, err := s.jobs.Cancel(ctx, id)
	if err != nil {
		log.Error().Err(err).
			Str("identity", id).
			Msg("interest notification cancel failed")
		return
	}

	if cancelled {
		log.Debug().Str("identity", id).Msg("interest notification cancelled")
	}
}
