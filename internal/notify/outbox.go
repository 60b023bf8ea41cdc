package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"brhygiene/internal/domain"
	"brhygiene/internal/metrics"
)

// Job is one notification waiting to be redelivered.
type Job struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Inquiry   *domain.Inquiry `json:"inquiry"`
	Attempt   int             `json:"attempt"`
	LastError string          `json:"last_error,omitempty"`
}

// NewJob creates a job for a notification that has already failed once.
func NewJob(kind Kind, inq *domain.Inquiry, cause error) Job {
	job := Job{
		ID:      uuid.New().String(),
		Kind:    kind,
		Inquiry: inq,
		Attempt: 1,
	}
	if cause != nil {
		job.LastError = cause.Error()
	}
	return job
}

// Outbox holds failed notifications in a Redis sorted set scored by the
// unix time at which they become due. Jobs that exhaust their attempts are
// pushed onto a dead-letter list.
type Outbox struct {
	rdb     *redis.Client
	key     string
	deadKey string
}

// NewOutbox creates an outbox stored under key.
func NewOutbox(rdb *redis.Client, key string) *Outbox {
	return &Outbox{
		rdb:     rdb,
		key:     key,
		deadKey: key + ":dead",
	}
}

// Enqueue schedules job for delivery at due.
func (o *Outbox) Enqueue(ctx context.Context, job Job, due time.Time) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal outbox job: %w", err)
	}
	if err := o.rdb.ZAdd(ctx, o.key, redis.Z{
		Score:  float64(due.Unix()),
		Member: string(payload),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue outbox job: %w", err)
	}
	metrics.RecordOutbox("enqueued")
	return nil
}

// Claim removes and returns up to limit jobs due at or before now. A job is
// returned to exactly one caller even when several workers claim at once.
func (o *Outbox) Claim(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	members, err := o.rdb.ZRangeByScore(ctx, o.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read due outbox jobs: %w", err)
	}

	jobs := make([]Job, 0, len(members))
	for _, member := range members {
		removed, err := o.rdb.ZRem(ctx, o.key, member).Result()
		if err != nil {
			return jobs, fmt.Errorf("claim outbox job: %w", err)
		}
		if removed == 0 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil || job.Inquiry == nil {
			// Unreadable payloads cannot be retried; park them for inspection.
			_ = o.rdb.LPush(ctx, o.deadKey, member).Err()
			metrics.RecordOutbox("corrupt")
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// DeadLetter parks a job that will not be retried again.
func (o *Outbox) DeadLetter(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal outbox job: %w", err)
	}
	if err := o.rdb.LPush(ctx, o.deadKey, string(payload)).Err(); err != nil {
		return fmt.Errorf("dead-letter outbox job: %w", err)
	}
	metrics.RecordOutbox("dead_lettered")
	return nil
}

// Pending returns the number of jobs waiting in the outbox.
func (o *Outbox) Pending(ctx context.Context) (int64, error) {
	return o.rdb.ZCard(ctx, o.key).Result()
}

// DeadLettered returns the number of parked jobs.
func (o *Outbox) DeadLettered(ctx context.Context) (int64, error) {
	return o.rdb.LLen(ctx, o.deadKey).Result()
}
