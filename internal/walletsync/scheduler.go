// Package walletsync refreshes cached wallet records on a cron schedule so
// listings stay current without every request reaching the wallet.
package walletsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/zkfactor/internal/metrics"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

// Refresher re-reads records into the cache.
type Refresher interface {
	RefreshRecords(ctx context.Context) error
}

// Config controls the scheduler.
type Config struct {
	// Schedule is a standard cron spec or descriptor such as "@every 1m".
	Schedule string
	// Timeout bounds a single refresh. Default 30s.
	Timeout time.Duration
}

// Scheduler runs a Refresher periodically. Runs never overlap: a tick that
// fires while the previous refresh is still running is skipped.
type Scheduler struct {
	target  Refresher
	cron    *cron.Cron
	log     *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	running bool
	lastErr error
	lastRun time.Time
}

// New validates cfg and prepares a stopped scheduler.
func New(target Refresher, cfg Config, log *logger.Logger) (*Scheduler, error) {
	if target == nil {
		return nil, errors.New("refresher is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &Scheduler{
		target:  target,
		log:     log.WithField("component", "walletsync"),
		timeout: cfg.Timeout,
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.log))))
	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start begins running on schedule.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.cron.Start()
	s.log.Info("wallet sync started")
	return nil
}

// Stop halts the schedule and waits for an in-flight refresh, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("wallet sync stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce performs one refresh immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.target.RefreshRecords(ctx)
	elapsed := time.Since(start)
	metrics.RecordSync("all", elapsed, err == nil)

	s.mu.Lock()
	s.lastErr = err
	s.lastRun = start
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).Warn("wallet sync failed")
		return err
	}
	s.log.WithField("elapsed", elapsed.String()).Debug("wallet sync complete")
	return nil
}

// LastRun returns when the last refresh started and how it ended.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Scheduler) tick() {
	_ = s.RunOnce(context.Background())
}
