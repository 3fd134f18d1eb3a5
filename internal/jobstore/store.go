// Package jobstore provides the durable, time-ordered queue of pending
// notification jobs keyed by deterministic identity.
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/unihub/dispatch/internal/job"
)

// ErrUnavailable wraps backend connectivity failures so callers can
// treat them as transient and skip the current cycle.
var ErrUnavailable = errors.New("job store unavailable")

// Store is the contract shared by all job store backends.
//
// Semantics:
//   - Enqueue atomically replaces an existing pending (or retained
//     failed) job with the same identity. A job currently in flight is
//     left untouched; the racing delivery proceeds.
//   - Cancel removes a pending job and reports whether anything was
//     removed. It never touches in-flight or completed jobs.
//   - PopDue returns jobs whose ReadyAt is at or before now and marks
//     each in-flight atomically with the read, so concurrent pops never
//     claim the same job twice.
//   - MarkDone removes the job. MarkFailed retains it with the failure
//     reason for operator visibility; there is no automatic retry.
type Store interface {
	Enqueue(ctx context.Context, j *job.Job) error
	Cancel(ctx context.Context, identity string) (bool, error)
	PopDue(ctx context.Context, now time.Time, limit int) ([]job.Job, error)
	MarkDone(ctx context.Context, identity string) error
	MarkFailed(ctx context.Context, identity string, reason string) error
	Close()
}
