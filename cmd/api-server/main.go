package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unihub/dispatch/internal/api"
	"github.com/unihub/dispatch/internal/auth"
	"github.com/unihub/dispatch/internal/config"
	"github.com/unihub/dispatch/internal/events"
	"github.com/unihub/dispatch/internal/identity"
	"github.com/unihub/dispatch/internal/jobstore"
	"github.com/unihub/dispatch/internal/logger"
	"github.com/unihub/dispatch/internal/rsvp"
	"github.com/unihub/dispatch/internal/storage"
	"github.com/unihub/dispatch/internal/sweep"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewFromConfig(logger.LoggingConfig{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting API server")

	// Connect to database
	ctx := context.Background()
	db, err := storage.NewDB(
		ctx,
		cfg.Database.URL,
		cfg.Database.PoolMin,
		cfg.Database.PoolMax,
		cfg.Database.ConnectTimeout,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("database connection established")

	// Job store behind the configured backend
	jobs, err := jobstore.New(ctx, cfg.Jobs, db.Pool, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job store")
	}
	defer jobs.Close()

	eventStore := events.NewPostgresStore(db.Pool)
	resolver := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.Timeout)

	rsvpService := rsvp.NewService(eventStore, jobs, resolver, cfg.Jobs.GraceDelay)
	sweeper := sweep.NewSweeper(eventStore, jobs, resolver)

	if cfg.Identity.SigningKey == "" {
		log.Warn().Msg("session signing key is not set; set DISPATCH_IDENTITY_SIGNING_KEY in production")
	}

	router := api.NewRouter(api.RouterDeps{
		DB:              db,
		Events:          eventStore,
		RSVP:            rsvpService,
		Sweeper:         sweeper,
		Sessions:        auth.NewSessionValidator(cfg.Identity.SigningKey),
		OperatorKeyHash: cfg.Auth.OperatorKeyHash,
	}, log)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
