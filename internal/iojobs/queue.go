// Package iojobs implements a persistent jobs.Queue on PostgreSQL.
// Workers claim jobs with FOR UPDATE SKIP LOCKED, so several worker
// processes can share one queue.
package iojobs

import (
	"context"
	"errors"
	"time"

	"github.com/gnames/gntree/pkg/db"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type queue struct {
	operator     db.Operator
	maxAttempts  int
	retryDelay   time.Duration
	staleRunning time.Duration
}

// Option configures the queue.
type Option func(*queue)

// OptMaxAttempts sets how many times a failing job runs.
func OptMaxAttempts(i int) Option {
	return func(q *queue) {
		if i > 0 {
			q.maxAttempts = i
		}
	}
}

// OptRetryDelay sets the pause before a failed job runs again.
func OptRetryDelay(d time.Duration) Option {
	return func(q *queue) {
		if d >= 0 {
			q.retryDelay = d
		}
	}
}

// OptStaleRunning sets the age of a running job after which it is
// considered abandoned and can be claimed again.
func OptStaleRunning(d time.Duration) Option {
	return func(q *queue) {
		if d > 0 {
			q.staleRunning = d
		}
	}
}

// New creates a queue on the jobs table.
func New(op db.Operator, opts ...Option) jobs.Queue {
	res := &queue{
		operator:     op,
		maxAttempts:  5,
		retryDelay:   30 * time.Second,
		staleRunning: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Enqueue relies on the partial unique index of pending jobs (queued or
// failed with attempts left), so concurrent calls cannot create two
// pending jobs for one entity.
func (q *queue) Enqueue(
	ctx context.Context,
	jobType string,
	entityID int64,
) (bool, error) {
	pool := q.operator.Pool()
	if pool == nil {
		return false, NotConnectedError()
	}
	tag, err := pool.Exec(ctx, `
		INSERT INTO jobs
			(id, job_type, entity_id, status, attempts, run_at,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, now(), now(), now())
		ON CONFLICT (job_type, entity_id) WHERE status IN ('queued', 'failed')
		DO NOTHING`,
		uuid.NewString(), jobType, entityID, schema.JobQueued)
	if err != nil {
		return false, EnqueueError(jobType, entityID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel removes queued jobs and failed jobs waiting for a retry.
func (q *queue) Cancel(
	ctx context.Context,
	jobType string,
	entityID int64,
) (int64, error) {
	pool := q.operator.Pool()
	if pool == nil {
		return 0, NotConnectedError()
	}
	tag, err := pool.Exec(ctx, `
		DELETE FROM jobs
		WHERE job_type = $1 AND entity_id = $2
			AND status IN ($3, $4)`,
		jobType, entityID, schema.JobQueued, schema.JobFailed)
	if err != nil {
		return 0, EnqueueError(jobType, entityID, err)
	}
	return tag.RowsAffected(), nil
}

const claimSQL = `
	UPDATE jobs
	SET status = 'running', attempts = attempts + 1,
		locked_at = now(), heartbeat_at = now(), updated_at = now()
	WHERE id = (
		SELECT id FROM jobs
		WHERE run_at <= now() AND attempts < $1 AND (
			status = 'queued'
			OR status = 'failed'
			OR (status = 'running' AND
				heartbeat_at < now() - make_interval(secs => $2))
		)
		ORDER BY run_at, created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	)
	RETURNING id, job_type, entity_id, status, attempts,
		coalesce(last_error, ''), last_error_at, locked_at,
		heartbeat_at, run_at, created_at, updated_at`

func (q *queue) Claim(ctx context.Context) (*schema.Job, error) {
	pool := q.operator.Pool()
	if pool == nil {
		return nil, NotConnectedError()
	}

	var j schema.Job
	err := pool.QueryRow(ctx, claimSQL,
		q.maxAttempts, q.staleRunning.Seconds()).Scan(
		&j.ID, &j.JobType, &j.EntityID, &j.Status, &j.Attempts,
		&j.LastError, &j.LastErrorAt, &j.LockedAt,
		&j.HeartbeatAt, &j.RunAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ClaimError(err)
	}
	return &j, nil
}

func (q *queue) Complete(ctx context.Context, id string) error {
	pool := q.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}
	_, err := pool.Exec(ctx, `
		UPDATE jobs SET status = $2, updated_at = now()
		WHERE id = $1`, id, schema.JobSucceeded)
	if err != nil {
		return ClaimError(err)
	}
	return nil
}

// uniqueViolation is the PostgreSQL SQLSTATE of unique index conflicts.
const uniqueViolation = "23505"

// failSQL keeps a job pending for a retry unless its attempts are used
// up or a newer pending job of the entity exists, then the job is dead.
const failSQL = `
	UPDATE jobs j
	SET status = CASE
			WHEN j.attempts >= $5 OR EXISTS (
				SELECT 1 FROM jobs p
				WHERE p.job_type = j.job_type AND p.entity_id = j.entity_id
					AND p.id <> j.id AND p.status IN ('queued', 'failed')
			) THEN $3 ELSE $2 END,
		last_error = $4, last_error_at = now(),
		run_at = now() + make_interval(secs => $6),
		updated_at = now()
	WHERE j.id = $1`

func (q *queue) Fail(ctx context.Context, id string, jobErr error) error {
	pool := q.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}
	args := []any{id, schema.JobFailed, schema.JobDead, jobErr.Error(),
		q.maxAttempts, q.retryDelay.Seconds()}
	_, err := pool.Exec(ctx, failSQL, args...)

	// a job enqueued at the same moment took the pending slot
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		args[1] = schema.JobDead
		_, err = pool.Exec(ctx, failSQL, args...)
	}
	if err != nil {
		return ClaimError(err)
	}
	return nil
}
