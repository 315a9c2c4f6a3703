package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/smarteventhub/internal/jobs"
	"github.com/geocoder89/smarteventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const jobColumns = `id, type, payload, status, attempts, max_attempts, run_at,
	locked_at, locked_by, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (jobs.Job, error) {
	var j jobs.Job

	err := row.Scan(
		&j.ID, &j.Type, &j.Payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.RunAt,
		&j.LockedAt, &j.LockedBy, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)

	if err != nil {
		return jobs.Job{}, err
	}

	return j, nil
}

func (r *JobsRepo) Create(ctx context.Context, req jobs.CreateRequest) (jobs.Job, error) {
	j := jobs.New(req)

	err := r.observe("jobs.create", func() error {
		_, execErr := r.pool.Exec(ctx, `
			INSERT INTO jobs (id, type, payload, status, attempts, max_attempts, run_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, j.ID, j.Type, j.Payload, j.Status, j.Attempts, j.MaxAttempts, j.RunAt, j.CreatedAt, j.UpdatedAt)
		return execErr
	})

	if err != nil {
		return jobs.Job{}, err
	}

	return j, nil
}

// ClaimNext atomically moves the next due pending job to processing.
// SKIP LOCKED keeps concurrent workers off each other's claims.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (jobs.Job, error) {
	var j jobs.Job

	err := r.observe("jobs.claim_next", func() error {
		var sErr error
		j, sErr = scanJob(r.pool.QueryRow(ctx, `
			UPDATE jobs
			SET status = 'processing',
			    attempts = attempts + 1,
			    locked_at = NOW(),
			    locked_by = $1,
			    updated_at = NOW()
			WHERE id = (
				SELECT id FROM jobs
				WHERE status = 'pending' AND run_at <= NOW()
				ORDER BY run_at ASC, created_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			RETURNING `+jobColumns,
			workerID))
		return sErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobs.Job{}, jobs.ErrNotFound
		}
		return jobs.Job{}, err
	}

	return j, nil
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.observe("jobs.mark_done", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'done',
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE id = $1
		`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return jobs.ErrNotFound
		}

		return nil
	})
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.observe("jobs.mark_failed", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = $2,
			    updated_at = NOW()
			WHERE id = $1
		`, id, errMsg)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return jobs.ErrNotFound
		}

		return nil
	})
}

// Reschedule returns a job to pending for a later retry.
func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.observe("jobs.reschedule", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    run_at = $2,
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = $3,
			    updated_at = NOW()
			WHERE id = $1
		`, id, runAt, errMsg)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return jobs.ErrNotFound
		}

		return nil
	})
}

// RequeueStaleProcessing frees jobs whose worker died mid-flight.
func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	var n int64

	err := r.observe("jobs.requeue_stale", func() error {
		tag, execErr := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    locked_at = NULL,
			    locked_by = NULL,
			    updated_at = NOW()
			WHERE status = 'processing' AND locked_at < NOW() - make_interval(secs => $1)
		`, lockTTL.Seconds())

		if execErr != nil {
			return execErr
		}

		n = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return 0, err
	}

	return n, nil
}
