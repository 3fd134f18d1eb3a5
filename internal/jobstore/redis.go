package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unihub/dispatch/internal/job"
)

// Redis key layout: each job lives in a hash job:{identity} with fields
// data (JSON), state, and failure. Pending jobs are additionally indexed
// in the jobs:pending sorted set scored by ReadyAt, and failed jobs in
// the jobs:failed set for operator inspection.
func jobKey(identity string) string {
	return "job:" + identity
}

const (
	pendingKey = "jobs:pending"
	failedKey  = "jobs:failed"
)

// enqueueScript replaces an existing job with the same identity unless
// it is in flight.
var enqueueScript = redis.NewScript(`
local key = KEYS[1]
local state = redis.call('HGET', key, 'state')
if state == 'in_flight' then
    return 0
end
redis.call('HSET', key, 'data', ARGV[2], 'state', 'pending', 'failure', '')
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
redis.call('SREM', KEYS[3], ARGV[1])
return 1
`)

// cancelScript removes a job only while it is still pending.
var cancelScript = redis.NewScript(`
local removed = redis.call('ZREM', KEYS[2], ARGV[1])
if removed == 1 then
    redis.call('DEL', KEYS[1])
end
return removed
`)

// popDueScript claims every due job in one atomic step: it removes the
// identity from the pending index and flips the hash state to in_flight
// before returning the payload, so two concurrent pops never return the
// same job.
var popDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local out = {}
for _, identity in ipairs(due) do
    redis.call('ZREM', KEYS[1], identity)
    local key = 'job:' .. identity
    redis.call('HSET', key, 'state', 'in_flight')
    local data = redis.call('HGET', key, 'data')
    if data then
        table.insert(out, data)
    end
end
return out
`)

// RedisStore keeps jobs in Redis, scheduled by a sorted set scored on
// ReadyAt and claimed atomically through Lua scripts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, storeErr("connect to redis", err)
	}
	return &RedisStore{client: client}, nil
}

// Enqueue stores a pending job, replacing any non-in-flight job with
// the same identity.
func (s *RedisStore) Enqueue(ctx context.Context, j *job.Job) error {
	if err := j.Validate(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	err = enqueueScript.Run(ctx, s.client,
		[]string{jobKey(j.Identity), pendingKey, failedKey},
		j.Identity, string(data), strconv.FormatInt(j.ReadyAt.UnixMilli(), 10),
	).Err()
	if err != nil {
		return storeErr("enqueue job "+j.Identity, err)
	}

	JobsEnqueuedTotal.WithLabelValues(j.Kind.String()).Inc()
	return nil
}

// Cancel removes a pending job; in-flight or completed jobs are untouched.
func (s *RedisStore) Cancel(ctx context.Context, identity string) (bool, error) {
	removed, err := cancelScript.Run(ctx, s.client,
		[]string{jobKey(identity), pendingKey}, identity).Int()
	if err != nil {
		return false, storeErr("cancel job "+identity, err)
	}

	if removed == 1 {
		JobsCancelledTotal.Inc()
		return true, nil
	}
	return false, nil
}

// PopDue atomically claims all jobs whose ReadyAt is at or before now.
func (s *RedisStore) PopDue(ctx context.Context, now time.Time, limit int) ([]job.Job, error) {
	raw, err := popDueScript.Run(ctx, s.client,
		[]string{pendingKey},
		strconv.FormatInt(now.UnixMilli(), 10), strconv.Itoa(limit),
	).StringSlice()
	if err != nil {
		return nil, storeErr("pop due jobs", err)
	}

	jobs := make([]job.Job, 0, len(raw))
	for _, data := range raw {
		var j job.Job
		if err := json.Unmarshal([]byte(data), &j); err != nil {
			return nil, fmt.Errorf("decode claimed job: %w", err)
		}
		j.State = job.StateInFlight
		jobs = append(jobs, j)
	}

	JobsClaimedTotal.Add(float64(len(jobs)))
	return jobs, nil
}

// MarkDone deletes a delivered job.
func (s *RedisStore) MarkDone(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, jobKey(identity)).Err(); err != nil {
		return storeErr("mark job done "+identity, err)
	}
	JobsCompletedTotal.WithLabelValues("done").Inc()
	return nil
}

// MarkFailed retains the job hash with its failure reason and indexes
// it for operator inspection.
func (s *RedisStore) MarkFailed(ctx context.Context, identity string, reason string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(identity), "state", string(job.StateFailed), "failure", reason)
	pipe.SAdd(ctx, failedKey, identity)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("mark job failed "+identity, err)
	}
	JobsCompletedTotal.WithLabelValues("failed").Inc()
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() {
	s.client.Close()
}
