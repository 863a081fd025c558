// Package scheduler runs periodic backups with retention on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tnll-dbtool/internal/backup"
)

// Backupper is the subset of backup.Manager the scheduler drives
type Backupper interface {
	Create(ctx context.Context, name string) (*backup.Info, error)
	Prune(keep int) ([]string, error)
}

// Run describes one scheduled backup pass
type Run struct {
	Info     *backup.Info
	Pruned   []string
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Scheduler owns a cron instance with a single backup job
type Scheduler struct {
	schedule string
	backups  Backupper
	keep     int
	logger   *slog.Logger
	cron     *cron.Cron
	onRun    func(Run)

	mu      sync.Mutex
	running bool
}

// New validates a standard five-field cron expression (descriptors such as
// @daily are accepted too). keep <= 0 disables pruning.
func New(schedule string, backups Backupper, keep int, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Scheduler{
		schedule: schedule,
		backups:  backups,
		keep:     keep,
		logger:   logger,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}, nil
}

// OnRun registers a callback invoked after every pass, scheduled or manual
func (s *Scheduler) OnRun(fn func(Run)) {
	s.onRun = fn
}

// Start registers the job and starts the cron goroutine
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to add backup job: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Backup scheduler started", "schedule", s.schedule, "keep", s.keep, "next", s.Next())
	return nil
}

// Stop halts scheduling and waits for a running backup to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping backup scheduler...")
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next activation time, or zero when not started
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce creates a backup and prunes old ones
func (s *Scheduler) RunOnce(ctx context.Context) Run {
	run := Run{Started: time.Now()}

	run.Info, run.Err = s.backups.Create(ctx, "")
	if run.Err != nil {
		s.logger.Error("Scheduled backup failed", "error", run.Err)
	} else {
		s.logger.Info("Scheduled backup created",
			"name", run.Info.Name,
			"size", run.Info.HumanSize,
			"method", run.Info.Method)

		if s.keep > 0 {
			pruned, err := s.backups.Prune(s.keep)
			run.Pruned = pruned
			if err != nil {
				run.Err = fmt.Errorf("backup created but pruning failed: %w", err)
				s.logger.Error("Failed to prune backups", "error", err)
			} else if len(pruned) > 0 {
				s.logger.Info("Pruned old backups", "removed", len(pruned), "keep", s.keep)
			}
		}
	}

	run.Duration = time.Since(run.Started)
	if s.onRun != nil {
		s.onRun(run)
	}
	return run
}
