// Package events provides access to event records and their RSVP sets.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/unihub/dispatch/internal/job"
)

// ErrEventNotFound is returned when no event exists for the given id.
var ErrEventNotFound = errors.New("event not found")

// Event is a stored event record.
type Event struct {
	ID             string
	Title          string
	Description    string
	Type           string
	Location       string
	Date           time.Time
	Time           string
	Price          string
	Capacity       string
	Image          string
	OrganizerID    string
	OrganizerName  string
	OrganizerEmail string
	RSVPCount      int
}

// Snapshot captures the event fields a notification payload carries.
func (e *Event) Snapshot() job.EventSnapshot {
	return job.EventSnapshot{
		Title:          e.Title,
		Date:           e.Date,
		Time:           e.Time,
		Location:       e.Location,
		Description:    e.Description,
		Price:          e.Price,
		OrganizerID:    e.OrganizerID,
		OrganizerName:  e.OrganizerName,
		OrganizerEmail: e.OrganizerEmail,
	}
}

// Store reads and mutates event records.
type Store interface {
	// GetEvent returns a single event or ErrEventNotFound.
	GetEvent(ctx context.Context, eventID string) (*Event, error)

	// ToggleRSVP flips the user's membership in the event's RSVP set
	// atomically. It returns whether the user is now a member and the
	// updated counter (floored at zero on removal).
	ToggleRSVP(ctx context.Context, eventID, userID string) (added bool, count int, err error)

	// ListUpcoming returns events dated inside [from, to], both bounds
	// inclusive. Used by the reminder sweep.
	ListUpcoming(ctx context.Context, from, to time.Time) ([]Event, error)

	// ListConcluded returns events dated inside [from, to), the upper
	// bound exclusive. Used by the feedback sweep.
	ListConcluded(ctx context.Context, from, to time.Time) ([]Event, error)

	// ListRSVPs returns the user ids in the event's RSVP set.
	ListRSVPs(ctx context.Context, eventID string) ([]string, error)
}
