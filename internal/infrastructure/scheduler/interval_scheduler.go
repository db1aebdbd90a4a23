// Package scheduler runs background maintenance jobs such as payment expiry.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name returns the job name
func (f JobFunc) Name() string { return f.JobName }

// Run calls Fn
func (f JobFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// IntervalSchedulerConfig holds configuration for an IntervalScheduler
type IntervalSchedulerConfig struct {
	// Enabled determines if the scheduler starts at all
	Enabled bool

	// Interval between the end of one run and the start of the next
	Interval time.Duration

	// RunTimeout bounds a single run; zero means Interval
	RunTimeout time.Duration

	// RunOnStart runs the job immediately instead of waiting one interval
	RunOnStart bool
}

// RunStats summarizes the scheduler's history
type RunStats struct {
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastRunAt    time.Time     `json:"last_run_at"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
}

// IntervalScheduler runs a job on a fixed interval. Runs never overlap.
type IntervalScheduler struct {
	job    Job
	config IntervalSchedulerConfig
	logger *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	runMu     sync.Mutex
	stats     RunStats
}

// NewIntervalScheduler creates a scheduler for job
func NewIntervalScheduler(job Job, config IntervalSchedulerConfig, logger *zap.Logger) (*IntervalScheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: job is required", ErrInvalidConfig)
	}
	if config.Enabled && config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, config.Interval)
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = config.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalScheduler{
		job:    job,
		config: config,
		logger: logger.With(zap.String("job", job.Name())),
	}, nil
}

// Start launches the run loop; a second Start is a no-op
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.isRunning = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_start", s.config.RunOnStart))
	return nil
}

// Stop cancels the loop and waits for the current run, bounded by ctx
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the loop is active
func (s *IntervalScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// TriggerNow runs the job synchronously outside the schedule.
// It fails with ErrRunInProgress instead of waiting for a scheduled run.
func (s *IntervalScheduler) TriggerNow(ctx context.Context) error {
	if !s.runMu.TryLock() {
		return ErrRunInProgress
	}
	defer s.runMu.Unlock()
	return s.runLocked(ctx)
}

// Stats returns a snapshot of the run history
func (s *IntervalScheduler) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *IntervalScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runScheduled(ctx)
	}

	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Scheduler loop stopping")
			return
		case <-timer.C:
			s.runScheduled(ctx)
			timer.Reset(s.config.Interval)
		}
	}
}

func (s *IntervalScheduler) runScheduled(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_ = s.runLocked(ctx)
}

// runLocked executes one run; the caller holds runMu
func (s *IntervalScheduler) runLocked(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	started := time.Now()
	err := s.job.Run(runCtx)
	elapsed := time.Since(started)

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRunAt = started
	s.stats.LastDuration = elapsed
	s.stats.LastError = ""
	if err != nil {
		s.stats.Failures++
		s.stats.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled job failed", zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}
	s.logger.Debug("Scheduled job completed", zap.Duration("duration", elapsed))
	return nil
}
