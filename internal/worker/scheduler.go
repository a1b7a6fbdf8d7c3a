// Package worker runs the periodic background sweeps: the nightly conflict
// rescan and the reminder dispatcher.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/dto"
)

const defaultRunTimeout = 5 * time.Minute

type rescanner interface {
	RescanAll(ctx context.Context, days int) (*dto.RescanResult, error)
}

type reminderDispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// Config selects cron specs for each sweep. An empty spec disables it.
type Config struct {
	Location      *time.Location
	RescanSpec    string
	RescanHorizon int
	ReminderSpec  string
	RunTimeout    time.Duration
}

// Scheduler owns a cron runner with one entry per enabled sweep.
type Scheduler struct {
	cron      *cron.Cron
	rescans   rescanner
	reminders reminderDispatcher
	cfg       Config
	logger    *zap.Logger
}

// New validates the specs and registers the sweeps without starting them.
func New(rescans rescanner, reminders reminderDispatcher, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	cl := cronLogger{logger: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		rescans:   rescans,
		reminders: reminders,
		cfg:       cfg,
		logger:    logger,
	}

	if cfg.RescanSpec != "" && rescans != nil {
		if _, err := s.cron.AddFunc(cfg.RescanSpec, s.RunRescan); err != nil {
			return nil, fmt.Errorf("rescan schedule %q: %w", cfg.RescanSpec, err)
		}
	}
	if cfg.ReminderSpec != "" && reminders != nil {
		if _, err := s.cron.AddFunc(cfg.ReminderSpec, s.RunReminders); err != nil {
			return nil, fmt.Errorf("reminder schedule %q: %w", cfg.ReminderSpec, err)
		}
	}
	return s, nil
}

// Entries reports how many sweeps are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins firing entries in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("entries", s.Entries()))
}

// Stop prevents new runs and waits for running ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunRescan performs one conflict rescan over the configured horizon.
func (s *Scheduler) RunRescan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	result, err := s.rescans.RescanAll(ctx, s.cfg.RescanHorizon)
	if err != nil {
		s.logger.Error("conflict rescan failed", zap.Error(err))
		return
	}
	s.logger.Info("conflict rescan finished",
		zap.Int("users", result.Users),
		zap.Int("flagged", result.Flagged),
		zap.Int("pairs", result.Pairs),
	)
}

// RunReminders dispatches reminders that are due.
func (s *Scheduler) RunReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	n, err := s.reminders.DispatchDue(ctx)
	if err != nil {
		s.logger.Error("reminder sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("reminders dispatched", zap.Int("count", n))
	}
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
