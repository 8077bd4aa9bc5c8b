// Package scheduler runs the reminder scan on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pm-bot/backend/internal/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSchedule = "*/15 * * * *"

type Scanner interface {
	Scan(ctx context.Context) (*services.ScanResult, error)
}

type Config struct {
	// Schedule is a standard five-field cron spec or a descriptor such as
	// "@every 15m".
	Schedule string
	Location *time.Location
	Logger   *zap.Logger
}

// Scheduler owns a cron runner with a single scan entry. Overlapping runs are
// skipped and panics inside a scan are recovered and logged.
type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	logger  *zap.Logger
	entry   cron.EntryID

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(scanner Scanner, config Config) (*Scheduler, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	logger := config.Logger.Named("scheduler")
	cronLogger := NewCronLogger(logger)

	c := cron.New(
		cron.WithLocation(config.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s := &Scheduler{cron: c, scanner: scanner, logger: logger}

	id, err := c.AddFunc(config.Schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid scan schedule %q: %w", config.Schedule, err)
	}
	s.entry = id

	return s, nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.cron.Start()

	s.logger.Info("scheduler started", zap.Time("next_run", s.NextRun()))
}

// Stop halts the schedule, cancels the context of a running scan and waits
// for it to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out; scan still running")
		return ctx.Err()
	}
}

// NextRun is the zero time until Start has been called.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunOnce performs a scan immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (*services.ScanResult, error) {
	start := time.Now()
	result, err := s.scanner.Scan(ctx)
	if err != nil {
		s.logger.Error("reminder scan failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return result, err
	}

	s.logger.Info("reminder scan",
		zap.Int("overdue", len(result.Overdue)),
		zap.Int("due_soon", len(result.DueSoon)),
		zap.Int("marked", result.Marked),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	// RunOnce logs failures; cron has nowhere to return them.
	_, _ = s.RunOnce(ctx)
}
