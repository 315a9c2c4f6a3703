package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/smarteventhub/internal/config"
	"github.com/geocoder89/smarteventhub/internal/db"
	"github.com/geocoder89/smarteventhub/internal/mailer"
	"github.com/geocoder89/smarteventhub/internal/observability"
	"github.com/geocoder89/smarteventhub/internal/queue/worker"
	"github.com/geocoder89/smarteventhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

// jobs stuck in processing longer than this are assumed orphaned by a
// crashed worker and go back to pending
const staleLockTTL = 5 * time.Minute

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.NewRegistry())

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	eventsRepo := postgres.NewEventsRepo(pool, prom)

	var sender mailer.Sender

	if cfg.Env == "dev" && cfg.BrevoAPIKey == "" {
		log.Warn("BREVO_API_KEY not set, using log sender")
		sender = mailer.NewLogSender()
	} else {
		sender = mailer.NewBrevoSender(mailer.BrevoConfig{
			APIKey:      cfg.BrevoAPIKey,
			SenderName:  cfg.SenderName,
			SenderEmail: cfg.SenderEmail,
		}, log)
	}

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval: 250 * time.Millisecond,
		WorkerID:     workerID,
		Concurrency:  4,
	}, jobsRepo, eventsRepo, sender, log)

	go requeueStaleLoop(ctx, jobsRepo, log)

	log.Info("worker has started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}
}

func requeueStaleLoop(ctx context.Context, repo *postgres.JobsRepo, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			n, err := repo.RequeueStaleProcessing(ctx, staleLockTTL)

			if err != nil {
				log.Error("stale job requeue failed", "err", err)
				continue
			}

			if n > 0 {
				log.Warn("requeued stale jobs", "count", n)
			}
		}
	}
}
