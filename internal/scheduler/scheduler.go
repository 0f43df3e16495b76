// Package scheduler runs the live scan cycle on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/service"
)

// CycleRunner runs one evaluation cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*service.CycleReport, error)
}

// Scheduler manages the scheduled scan jobs
type Scheduler struct {
	cron         *cron.Cron
	runner       CycleRunner
	logger       *logrus.Logger
	mu           sync.RWMutex
	isRunning    bool
	jobIDs       []cron.EntryID
	cycleTimeout time.Duration
	lastReport   *service.CycleReport
	lastErr      error
	lastRun      time.Time
}

// NewScheduler creates a scheduler whose specs are read in loc. A job
// still running when its next tick fires is skipped.
func NewScheduler(runner CycleRunner, loc *time.Location, logger *logrus.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:       runner,
		logger:       logger,
		jobIDs:       make([]cron.EntryID, 0),
		cycleTimeout: 4 * time.Minute,
	}
}

// SetCycleTimeout bounds each scheduled cycle
func (s *Scheduler) SetCycleTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.cycleTimeout = d
	}
}

// ScheduleScanCycle schedules the live scan cycle
func (s *Scheduler) ScheduleScanCycle(cronExpression string) error {
	return s.ScheduleJob("scan_cycle", cronExpression, func(ctx context.Context) error {
		_, err := s.RunNow(ctx)
		return err
	})
}

// ScheduleJob schedules an arbitrary named job
func (s *Scheduler) ScheduleJob(name, cronExpression string, job func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		s.mu.RLock()
		timeout := s.cycleTimeout
		s.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := job(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{"job": name, "spec": cronExpression}).Info("Scheduled job")
	return nil
}

// RunNow runs one scan cycle immediately and records its outcome
func (s *Scheduler) RunNow(ctx context.Context) (*service.CycleReport, error) {
	report, err := s.runner.RunCycle(ctx)

	s.mu.Lock()
	s.lastReport = report
	s.lastErr = err
	s.lastRun = time.Now()
	s.mu.Unlock()

	if err != nil {
		return report, fmt.Errorf("scan cycle failed: %w", err)
	}
	if report != nil && !report.Skipped {
		s.logger.WithField("report", report.String()).Info("Scan cycle completed")
	}
	return report, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Infof("Scheduler started with %d jobs", len(s.jobIDs))

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastReport returns the most recent cycle report and when it ran
func (s *Scheduler) LastReport() (*service.CycleReport, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport, s.lastRun
}

// Check reports an error when the scheduler is stopped or the last cycle failed
func (s *Scheduler) Check(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return errors.New("scheduler is not running")
	}
	if s.lastErr != nil {
		return fmt.Errorf("last cycle failed: %w", s.lastErr)
	}
	return nil
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
