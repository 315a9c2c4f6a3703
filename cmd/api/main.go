package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/smarteventhub/internal/assets"
	"github.com/geocoder89/smarteventhub/internal/cache"
	"github.com/geocoder89/smarteventhub/internal/certificates"
	"github.com/geocoder89/smarteventhub/internal/config"
	"github.com/geocoder89/smarteventhub/internal/db"
	httpx "github.com/geocoder89/smarteventhub/internal/http"
	"github.com/geocoder89/smarteventhub/internal/mailer"
	"github.com/geocoder89/smarteventhub/internal/observability"
	"github.com/geocoder89/smarteventhub/internal/redisclient"
	"github.com/geocoder89/smarteventhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint the shutdown is a no-op
	shutdownTracer, err := observability.InitTracer(context.Background(), "smarteventhub-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(promReg)

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	// redis backs the public share-link cache; the API degrades to
	// plain DB reads if it is down
	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer rdb.Close()

	{
		ctx, cancel := config.WithTimeout(2 * time.Second)
		if err := rdb.Ping(ctx); err != nil {
			log.Warn("redis unavailable, share-link cache disabled", "err", err)
		}
		cancel()
	}

	eventCache := cache.NewEventCache(rdb.Raw(), 5*time.Minute)

	// certificate pipeline wiring
	sender := newSender(cfg, log)
	renderer := certificates.NewRenderer(assets.NewResolver(cfg.AssetRoot), log)

	pipeline := certificates.New(
		certificates.Config{Concurrency: cfg.CertConcurrency},
		postgres.NewEventsRepo(pool, prom),
		postgres.NewParticipantsRepo(pool, prom),
		renderer,
		sender,
		log,
		prom,
	)

	// set up routers with the log
	router := httpx.NewRouter(cfg, log, pool, eventCache, pipeline, prom, promReg)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// certificate batches render and send inline; give them room
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newSender picks the transactional email backend. Dev environments
// without a Brevo key log instead of sending; everywhere else the real
// provider is used and a missing key surfaces as a send error.
func newSender(cfg config.Config, log *slog.Logger) mailer.Sender {
	if cfg.Env == "dev" && cfg.BrevoAPIKey == "" {
		log.Warn("BREVO_API_KEY not set, using log sender")
		return mailer.NewLogSender()
	}

	return mailer.NewBrevoSender(mailer.BrevoConfig{
		APIKey:      cfg.BrevoAPIKey,
		SenderName:  cfg.SenderName,
		SenderEmail: cfg.SenderEmail,
	}, log)
}
