package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/jobs"
	"github.com/geocoder89/smarteventhub/internal/mailer"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (jobs.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

type EventReader interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type Config struct {
	PollInterval time.Duration
	WorkerID     string
	Concurrency  int
}

// Worker drains the jobs table and delivers registration-confirmation
// emails. This path is deliberately best-effort: failures retry with
// backoff and eventually dead-letter, nobody awaits them.
type Worker struct {
	cfg    Config
	repo   JobsRepository
	events EventReader
	sender mailer.Sender
	log    *slog.Logger
}

func New(cfg Config, repo JobsRepository, events EventReader, sender mailer.Sender, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &Worker{
		cfg:    cfg,
		repo:   repo,
		events: events,
		sender: sender,
		log:    log,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()
			w.loop(ctx, fmt.Sprintf("%s-%d", w.cfg.WorkerID, n))
		}(i)
	}

	wg.Wait()

	w.log.Info("worker shutdown complete")
	return nil
}

func (w *Worker) loop(ctx context.Context, workerID string) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// drain everything due before sleeping again
			for {
				processed, err := w.processOne(ctx, workerID)

				if err != nil {
					w.log.Error("job processing error", "worker_id", workerID, "err", err)
					break
				}

				if !processed || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (w *Worker) processOne(ctx context.Context, workerID string) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, workerID)
	cancel()

	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	start := time.Now()
	err = w.execute(ctx, j)

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.log.Info("job done", "job_id", j.ID, "type", j.Type, "duration_ms", time.Since(start).Milliseconds())
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	switch j.Type {
	case jobs.TypeRegistrationConfirmation:
		return w.sendRegistrationConfirmation(ctx, j)

	default:
		return fmt.Errorf("%w: %s", jobs.ErrInvalidType, j.Type)
	}
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error) {
	// malformed payloads never get better; dead-letter them right away
	if errors.Is(cause, jobs.ErrInvalidPayload) || errors.Is(cause, jobs.ErrInvalidType) || j.Attempts >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			w.log.Error("mark failed error", "job_id", j.ID, "err", err)
		}

		w.log.Warn("job dead-lettered", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", cause)
		return
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, cause.Error()); err != nil {
		w.log.Error("reschedule error", "job_id", j.ID, "err", err)
		return
	}

	w.log.Warn("job retry scheduled", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "run_at", runAt, "err", cause)
}
