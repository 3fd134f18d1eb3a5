// Package scheduler drives the periodic sweeps and the due-job
// dispatch loop from cron-style schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/unihub/dispatch/internal/config"
	"github.com/unihub/dispatch/internal/logger"
	"github.com/unihub/dispatch/internal/sweep"
)

// Sweeper runs the daily notification sweeps.
type Sweeper interface {
	RunReminderSweep(ctx context.Context) (sweep.Summary, error)
	RunFeedbackSweep(ctx context.Context) (sweep.Summary, error)
}

// Dispatcher delivers whatever jobs are currently due.
type Dispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// Scheduler owns the cron runner. Each triggered run gets its own
// correlation id so one run's log lines can be grepped together.
type Scheduler struct {
	cron            *cron.Cron
	sweeper         Sweeper
	dispatcher      Dispatcher
	log             zerolog.Logger
	shutdownTimeout time.Duration
}

// New builds a Scheduler from the configured cron specs. Invalid specs
// are rejected here, before anything starts running.
func New(cfg config.SchedulerConfig, sweeper Sweeper, dispatcher Dispatcher, shutdownTimeout time.Duration, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		sweeper:         sweeper,
		dispatcher:      dispatcher,
		log:             log,
		shutdownTimeout: shutdownTimeout,
	}

	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{log}),
	))

	if _, err := s.cron.AddFunc(cfg.ReminderSpec, s.runReminderSweep); err != nil {
		return nil, fmt.Errorf("invalid reminder sweep spec %q: %w", cfg.ReminderSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.FeedbackSpec, s.runFeedbackSweep); err != nil {
		return nil, fmt.Errorf("invalid feedback sweep spec %q: %w", cfg.FeedbackSpec, err)
	}
	if _, err := s.cron.AddFunc("@every "+cfg.DispatchInterval.String(), s.runDispatch); err != nil {
		return nil, fmt.Errorf("invalid dispatch interval %s: %w", cfg.DispatchInterval, err)
	}

	return s, nil
}

// Start begins triggering scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits up to the shutdown timeout for any
// in-progress run to finish.
func (s *Scheduler) Stop() {
	done := s.cron.Stop().Done()

	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped gracefully")
	case <-time.After(s.shutdownTimeout):
		s.log.Warn().Msg("scheduler shutdown timed out")
	}
}

// runCtx builds the context a triggered run executes under.
func (s *Scheduler) runCtx() context.Context {
	ctx := logger.WithLogger(context.Background(), s.log)
	return logger.WithCorrelationID(ctx, logger.NewCorrelationID())
}

func (s *Scheduler) runReminderSweep() {
	ctx := s.runCtx()
	if _, err := s.sweeper.RunReminderSweep(ctx); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("reminder sweep failed")
	}
}

func (s *Scheduler) runFeedbackSweep() {
	ctx := s.runCtx()
	if _, err := s.sweeper.RunFeedbackSweep(ctx); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("feedback sweep failed")
	}
}

func (s *Scheduler) runDispatch() {
	ctx := s.runCtx()
	if _, err := s.dispatcher.DispatchDue(ctx); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("dispatch cycle failed")
	}
}

// cronLogger adapts the structured logger to the cron runner's
// interface. Only panic recovery reports through it.
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Info().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
