// Package job defines the unit of scheduled notification work and its
// deterministic identity.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind selects the payload shape and the downstream message template.
type Kind int

const (
	// KindInterest confirms a fresh RSVP after the grace delay.
	KindInterest Kind = iota
	// KindReminder is the two-day advance notice for an upcoming event.
	KindReminder
	// KindFeedback requests feedback for an event that concluded two days ago.
	KindFeedback
)

var kindNames = map[Kind]string{
	KindInterest: "interest",
	KindReminder: "reminder",
	KindFeedback: "feedback",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts a wire name back into a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown job kind %q", s)
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("marshal invalid job kind %d", int(k))
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire name into a Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// State tracks a job through its lifecycle. A job moves
// pending -> in-flight -> done or failed exactly once; it is never
// returned to pending automatically.
type State string

const (
	StatePending  State = "pending"
	StateInFlight State = "in_flight"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// EventSnapshot carries the event fields captured at enqueue time.
// It is never re-read from the event store at delivery time, so later
// edits to the event do not alter a pending notification.
type EventSnapshot struct {
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time,omitempty"`
	Location       string    `json:"location"`
	Description    string    `json:"description,omitempty"`
	Price          string    `json:"price,omitempty"`
	OrganizerID    string    `json:"organizer_id"`
	OrganizerName  string    `json:"organizer_name"`
	OrganizerEmail string    `json:"organizer_email"`
}

// Recipient identifies who receives the notification.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Payload is the full structured payload handed to the delivery sink.
type Payload struct {
	EventID   string        `json:"event_id"`
	Event     EventSnapshot `json:"event"`
	Recipient Recipient     `json:"recipient"`
}

// Job is a scheduled unit of notification work.
type Job struct {
	Identity  string    `json:"identity"`
	Kind      Kind      `json:"kind"`
	Payload   Payload   `json:"payload"`
	ReadyAt   time.Time `json:"ready_at"`
	State     State     `json:"state"`
	Failure   string    `json:"failure,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InterestIdentity builds the identity for an interest-confirmation job.
// At most one pending job exists per (event, user); toggling the RSVP
// off cancels it by the same key.
func InterestIdentity(eventID, userID string) string {
	return fmt.Sprintf("email-%s-%s", eventID, userID)
}

// SweepIdentity builds the identity for a sweep-produced job. The
// identity carries a day bucket so a sweep re-run on the same day
// replaces its own job, while the next day's run produces a fresh one.
func SweepIdentity(kind Kind, eventID, userID string, day time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s", kind, eventID, userID, day.UTC().Format("2006-01-02"))
}

// Validation errors returned by Validate.
var (
	ErrMissingEventID   = errors.New("job payload missing event id")
	ErrMissingRecipient = errors.New("job payload missing recipient email")
	ErrInvalidKind      = errors.New("job has invalid kind")
	ErrMissingIdentity  = errors.New("job missing identity")
)

// Validate rejects malformed jobs before they reach the store.
func (j *Job) Validate() error {
	if j.Identity == "" {
		return ErrMissingIdentity
	}
	if !j.Kind.Valid() {
		return ErrInvalidKind
	}
	if j.Payload.EventID == "" {
		return ErrMissingEventID
	}
	if j.Payload.Recipient.Email == "" {
		return ErrMissingRecipient
	}
	return nil
}

// New creates a pending job ready for enqueue.
func New(identity string, kind Kind, payload Payload, readyAt time.Time) *Job {
	return &Job{
		Identity:  identity,
		Kind:      kind,
		Payload:   payload,
		ReadyAt:   readyAt,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}
}
