package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unihub/dispatch/internal/config"
	"github.com/unihub/dispatch/internal/events"
	"github.com/unihub/dispatch/internal/identity"
	"github.com/unihub/dispatch/internal/jobstore"
	"github.com/unihub/dispatch/internal/logger"
	"github.com/unihub/dispatch/internal/scheduler"
	"github.com/unihub/dispatch/internal/sink"
	"github.com/unihub/dispatch/internal/storage"
	"github.com/unihub/dispatch/internal/sweep"
	"github.com/unihub/dispatch/internal/worker"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(logger.LoggingConfig{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting dispatch worker")

	// Initialize database connection pool.
	ctx := context.Background()
	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	jobs, err := jobstore.New(ctx, cfg.Jobs, db.Pool, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job store")
	}
	defer jobs.Close()

	eventStore := events.NewPostgresStore(db.Pool)
	resolver := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.Timeout)
	sinkClient := sink.NewClient(cfg.Sink.BaseURL, cfg.Sink.APIKey, cfg.Sink.Timeout)

	sweeper := sweep.NewSweeper(eventStore, jobs, resolver)
	dispatcher := worker.NewDispatcher(jobs, sinkClient, cfg.Jobs, cfg.Dispatch, cfg.Sink.FeedbackBaseURL, log)

	sched, err := scheduler.New(cfg.Scheduler, sweeper, dispatcher, cfg.Dispatch.ShutdownTimeout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build scheduler")
	}

	// Metrics and liveness endpoint for the worker process.
	metricsAddr := fmt.Sprintf(":%d", cfg.Dispatch.MetricsPort)
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: metricsHandler()}
	go func() {
		log.Info().Str("addr", metricsAddr).Msg("metrics listener started")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics listener error")
		}
	}()

	sched.Start()
	log.Info().
		Str("reminder_spec", cfg.Scheduler.ReminderSpec).
		Str("feedback_spec", cfg.Scheduler.FeedbackSpec).
		Dur("dispatch_interval", cfg.Scheduler.DispatchInterval).
		Msg("dispatch worker running")

	// Wait for interrupt signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down dispatch worker")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics listener forced to shutdown")
	}

	log.Info().Msg("dispatch worker stopped")
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
