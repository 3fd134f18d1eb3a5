package job

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInterest, "interest"},
		{KindReminder, "reminder"},
		{KindFeedback, "feedback"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"interest", "reminder", "feedback"} {
		k, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q) returned error: %v", name, err)
		}
		if k.String() != name {
			t.Errorf("ParseKind(%q).String() = %q", name, k.String())
		}
	}

	if _, err := ParseKind("newsletter"); err == nil {
		t.Error("expected error for unknown kind name")
	}
}

func TestKind_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(KindReminder)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(data) != `"reminder"` {
		t.Errorf("expected wire name \"reminder\", got %s", data)
	}

	var k Kind
	if err := json.Unmarshal(data, &k); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if k != KindReminder {
		t.Errorf("expected KindReminder, got %v", k)
	}
}

func TestKind_UnmarshalRejectsUnknown(t *testing.T) {
	var k Kind
	if err := json.Unmarshal([]byte(`"sms"`), &k); err == nil {
		t.Error("expected error for unknown kind on unmarshal")
	}
}

func TestInterestIdentity(t *testing.T) {
	got := InterestIdentity("ev-42", "user-7")
	if got != "email-ev-42-user-7" {
		t.Errorf("InterestIdentity() = %q, want %q", got, "email-ev-42-user-7")
	}
}

func TestSweepIdentity_DayBucket(t *testing.T) {
	day1 := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	id1 := SweepIdentity(KindReminder, "ev-1", "u-1", day1)
	id2 := SweepIdentity(KindReminder, "ev-1", "u-1", day2)

	if id1 != "reminder-ev-1-u-1-2025-03-10" {
		t.Errorf("unexpected identity %q", id1)
	}
	if id1 == id2 {
		t.Error("expected different identities for different days")
	}

	// Same day, different wall-clock time: same identity.
	later := day1.Add(30 * time.Minute)
	if SweepIdentity(KindReminder, "ev-1", "u-1", later) != id1 {
		t.Error("expected identical identity within the same day bucket")
	}
}

func validPayload() Payload {
	return Payload{
		EventID: "ev-1",
		Event: EventSnapshot{
			Title:          "Spring Concert",
			Date:           time.Date(2025, 4, 1, 19, 0, 0, 0, time.UTC),
			Location:       "Main Hall",
			OrganizerID:    "org-1",
			OrganizerName:  "Music Club",
			OrganizerEmail: "music@example.edu",
		},
		Recipient: Recipient{Email: "student@example.edu", Name: "Sam"},
	}
}

func TestJob_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr error
	}{
		{"valid", func(j *Job) {}, nil},
		{"missing identity", func(j *Job) { j.Identity = "" }, ErrMissingIdentity},
		{"invalid kind", func(j *Job) { j.Kind = Kind(99) }, ErrInvalidKind},
		{"missing event id", func(j *Job) { j.Payload.EventID = "" }, ErrMissingEventID},
		{"missing recipient", func(j *Job) { j.Payload.Recipient.Email = "" }, ErrMissingRecipient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := New(InterestIdentity("ev-1", "u-1"), KindInterest, validPayload(), now)
			tt.mutate(j)
			if err := j.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_StartsPending(t *testing.T) {
	j := New("email-ev-1-u-1", KindInterest, validPayload(), time.Now().Add(2*time.Minute))
	if j.State != StatePending {
		t.Errorf("expected new job state pending, got %s", j.State)
	}
	if j.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}
