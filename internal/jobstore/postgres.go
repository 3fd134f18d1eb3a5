package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unihub/dispatch/internal/job"
)

// PostgresStore persists jobs in a notification_jobs table. Due jobs are
// claimed with FOR UPDATE SKIP LOCKED so concurrent dispatchers never
// pop the same job twice.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on an existing connection pool.
// The pool's lifecycle is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// storeErr tags backend failures as transient so callers can skip the
// current cycle without crashing.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}

const enqueueSQL = `
INSERT INTO notification_jobs (identity, kind, payload, ready_at, state, failure, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'pending', NULL, now(), now())
ON CONFLICT (identity) DO UPDATE
SET kind = EXCLUDED.kind,
    payload = EXCLUDED.payload,
    ready_at = EXCLUDED.ready_at,
    state = 'pending',
    failure = NULL,
    updated_at = now()
WHERE notification_jobs.state <> 'in_flight'`

// Enqueue inserts a pending job, replacing any existing row with the
// same identity unless that row is currently in flight.
func (s *PostgresStore) Enqueue(ctx context.Context, j *job.Job) error {
	if err := j.Validate(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	if _, err := s.pool.Exec(ctx, enqueueSQL, j.Identity, j.Kind.String(), payload, j.ReadyAt); err != nil {
		return storeErr("enqueue job "+j.Identity, err)
	}

	JobsEnqueuedTotal.WithLabelValues(j.Kind.String()).Inc()
	return nil
}

// Cancel removes a pending job. Returns false when no pending job with
// that identity exists; a cancel racing an in-flight delivery loses.
func (s *PostgresStore) Cancel(ctx context.Context, identity string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notification_jobs WHERE identity = $1 AND state = 'pending'`, identity)
	if err != nil {
		return false, storeErr("cancel job "+identity, err)
	}

	removed := tag.RowsAffected() > 0
	if removed {
		JobsCancelledTotal.Inc()
	}
	return removed, nil
}

const popDueSQL = `
WITH due AS (
    SELECT identity
    FROM notification_jobs
    WHERE state = 'pending' AND ready_at <= $1
    ORDER BY ready_at
    FOR UPDATE SKIP LOCKED
    LIMIT $2
)
UPDATE notification_jobs nj
SET state = 'in_flight', updated_at = now()
FROM due
WHERE nj.identity = due.identity
RETURNING nj.identity, nj.kind, nj.payload, nj.ready_at, nj.created_at`

// PopDue claims all jobs due at or before now, marking each in-flight
// atomically with the read.
func (s *PostgresStore) PopDue(ctx context.Context, now time.Time, limit int) ([]job.Job, error) {
	rows, err := s.pool.Query(ctx, popDueSQL, now, limit)
	if err != nil {
		return nil, storeErr("pop due jobs", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		var (
			j        job.Job
			kindName string
			payload  []byte
		)
		if err := rows.Scan(&j.Identity, &kindName, &payload, &j.ReadyAt, &j.CreatedAt); err != nil {
			return nil, storeErr("scan due job", err)
		}

		kind, err := job.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("pop due jobs: %w", err)
		}
		j.Kind = kind

		if err := json.Unmarshal(payload, &j.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for job %s: %w", j.Identity, err)
		}

		j.State = job.StateInFlight
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("pop due jobs", err)
	}

	JobsClaimedTotal.Add(float64(len(jobs)))
	return jobs, nil
}

// MarkDone removes a delivered job from the store.
func (s *PostgresStore) MarkDone(ctx context.Context, identity string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM notification_jobs WHERE identity = $1 AND state = 'in_flight'`, identity); err != nil {
		return storeErr("mark job done "+identity, err)
	}
	JobsCompletedTotal.WithLabelValues("done").Inc()
	return nil
}

// MarkFailed retains the job with its failure reason for operator
// visibility. Failed jobs are not retried automatically.
func (s *PostgresStore) MarkFailed(ctx context.Context, identity string, reason string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE notification_jobs SET state = 'failed', failure = $2, updated_at = now() WHERE identity = $1`,
		identity, reason); err != nil {
		return storeErr("mark job failed "+identity, err)
	}
	JobsCompletedTotal.WithLabelValues("failed").Inc()
	return nil
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *PostgresStore) Close() {}
