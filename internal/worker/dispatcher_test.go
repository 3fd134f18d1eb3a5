package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/unihub/dispatch/internal/config"
	"github.com/unihub/dispatch/internal/job"
	"github.com/unihub/dispatch/internal/sink"
)

type fakeJobs struct {
	mu     sync.Mutex
	due    []job.Job
	popErr error
	done   []string
	failed map[string]string
}

func newFakeJobs(due ...job.Job) *fakeJobs {
	return &fakeJobs{due: due, failed: map[string]string{}}
}

func (f *fakeJobs) Enqueue(ctx context.Context, j *job.Job) error { return nil }

func (f *fakeJobs) Cancel(ctx context.Context, identity string) (bool, error) { return false, nil }

func (f *fakeJobs) PopDue(ctx context.Context, now time.Time, limit int) ([]job.Job, error) {
	if f.popErr != nil {
		return nil, f.popErr
	}
	batch := f.due
	if len(batch) > limit {
		batch = batch[:limit]
	}
	f.due = f.due[len(batch):]
	return batch, nil
}

func (f *fakeJobs) MarkDone(ctx context.Context, identity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, identity)
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, identity, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[identity] = reason
	return nil
}

func (f *fakeJobs) Close() {}

type fakeSink struct {
	mu       sync.Mutex
	requests []*sink.Request
	failFor  map[string]error
	block    bool

	inFlight    int
	maxInFlight int
}

func (f *fakeSink) Deliver(ctx context.Context, req *sink.Request) (int, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.requests = append(f.requests, req)
	err := f.failFor[req.EventID]
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
		return 0, ctx.Err()
	}

	time.Sleep(time.Millisecond)
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return len(req.Recipients), nil
}

func dueJob(eventID, userID string) job.Job {
	j := job.New(job.InterestIdentity(eventID, userID), job.KindInterest, job.Payload{
		EventID: eventID,
		Event: job.EventSnapshot{
			Title:          "Open Mic",
			Date:           time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
			Location:       "Cafe",
			OrganizerID:    "org-1",
			OrganizerEmail: "host@example.edu",
		},
		Recipient: job.Recipient{Email: userID + "@example.edu", Name: "U"},
	}, time.Now())
	j.State = job.StateInFlight
	return *j
}

func newDispatcher(jobs *fakeJobs, deliverer Deliverer, concurrency int, timeout time.Duration) *Dispatcher {
	return NewDispatcher(jobs, deliverer,
		config.JobsConfig{PopLimit: 100},
		config.DispatchConfig{Concurrency: concurrency, DeliveryTimeout: timeout},
		"http://localhost:4000", zerolog.Nop())
}

func TestDispatchDue_DeliversAndMarksDone(t *testing.T) {
	jobs := newFakeJobs(dueJob("ev-1", "u-1"))
	snk := &fakeSink{}
	d := newDispatcher(jobs, snk, 4, time.Second)

	n, err := d.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("claimed = %d, want 1", n)
	}

	if len(snk.requests) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(snk.requests))
	}
	req := snk.requests[0]
	if req.EventID != "ev-1" || req.EventName != "Open Mic" || req.OrganizerEmail != "host@example.edu" {
		t.Errorf("request = %+v", req)
	}
	if len(req.Recipients) != 1 || req.Recipients[0].Email != "u-1@example.edu" {
		t.Errorf("recipients = %+v", req.Recipients)
	}
	if !strings.Contains(req.Message, "Open Mic") {
		t.Errorf("message does not mention the event:\n%s", req.Message)
	}

	if len(jobs.done) != 1 || jobs.done[0] != "email-ev-1-u-1" {
		t.Errorf("done = %v", jobs.done)
	}
	if len(jobs.failed) != 0 {
		t.Errorf("failed = %v", jobs.failed)
	}
}

func TestDispatchDue_FailureIsIsolated(t *testing.T) {
	jobs := newFakeJobs(dueJob("ev-bad", "u-1"), dueJob("ev-2", "u-2"))
	snk := &fakeSink{failFor: map[string]error{"ev-bad": errors.New("sink rejected request")}}
	d := newDispatcher(jobs, snk, 4, time.Second)

	n, err := d.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if n != 2 {
		t.Fatalf("claimed = %d, want 2", n)
	}

	if len(jobs.done) != 1 || jobs.done[0] != "email-ev-2-u-2" {
		t.Errorf("done = %v, want only the healthy job", jobs.done)
	}
	reason, ok := jobs.failed["email-ev-bad-u-1"]
	if !ok {
		t.Fatalf("failed jobs = %v, want the bad one recorded", jobs.failed)
	}
	if !strings.Contains(reason, "sink rejected request") {
		t.Errorf("failure reason = %q", reason)
	}
}

func TestDispatchDue_EmptyBatchIsNoop(t *testing.T) {
	jobs := newFakeJobs()
	snk := &fakeSink{}
	d := newDispatcher(jobs, snk, 4, time.Second)

	n, err := d.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if n != 0 || len(snk.requests) != 0 {
		t.Fatalf("claimed = %d, deliveries = %d, want no work", n, len(snk.requests))
	}
}

func TestDispatchDue_PopErrorIsSurfaced(t *testing.T) {
	jobs := newFakeJobs()
	jobs.popErr = errors.New("store down")
	d := newDispatcher(jobs, &fakeSink{}, 4, time.Second)

	if _, err := d.DispatchDue(context.Background()); err == nil {
		t.Fatal("expected pop error")
	}
}

func TestDispatchDue_ConcurrencyIsBounded(t *testing.T) {
	var due []job.Job
	for _, u := range []string{"u-1", "u-2", "u-3", "u-4", "u-5", "u-6"} {
		due = append(due, dueJob("ev-1", u))
	}
	jobs := newFakeJobs(due...)
	snk := &fakeSink{}
	d := newDispatcher(jobs, snk, 2, time.Second)

	if _, err := d.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if snk.maxInFlight > 2 {
		t.Errorf("max in-flight deliveries = %d, want <= 2", snk.maxInFlight)
	}
}

func TestDispatchDue_SlowDeliveryTimesOutAndFails(t *testing.T) {
	jobs := newFakeJobs(dueJob("ev-1", "u-1"))
	snk := &fakeSink{block: true}
	d := newDispatcher(jobs, snk, 1, 20*time.Millisecond)

	if _, err := d.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if len(jobs.done) != 0 {
		t.Errorf("done = %v, want none", jobs.done)
	}
	if _, ok := jobs.failed["email-ev-1-u-1"]; !ok {
		t.Errorf("failed = %v, want timed-out job recorded", jobs.failed)
	}
}
