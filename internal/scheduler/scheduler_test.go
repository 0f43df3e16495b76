package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/orb-scanner/internal/logger"
	"github.com/yourusername/orb-scanner/internal/service"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) RunCycle(ctx context.Context) (*service.CycleReport, error) {
	f.calls.Add(1)
	return service.NewCycleReport("cycle-1", time.Now()), f.err
}

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, time.UTC, logger.Discard())
	assert.Error(t, s.ScheduleScanCycle("not a cron spec"))
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, time.UTC, logger.Discard())
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	s := NewScheduler(&fakeRunner{}, loc, logger.Discard())
	require.NoError(t, s.ScheduleScanCycle("*/5 9-15 * * 1-5"))
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(), "double start")
	assert.Error(t, s.ScheduleScanCycle("* * * * *"), "cannot schedule while running")

	assert.Len(t, s.Entries(), 1)
	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, loc.String(), next.Location().String())

	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}

func TestRunNowRecordsOutcome(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, time.UTC, logger.Discard())
	require.NoError(t, s.ScheduleScanCycle("@every 1h"))
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", report.CycleID)
	assert.NoError(t, s.Check(context.Background()))

	last, at := s.LastReport()
	assert.Same(t, report, last)
	assert.False(t, at.IsZero())

	runner.err = errors.New("boom")
	_, err = s.RunNow(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.Check(context.Background()))
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestCheckWhenStopped(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, time.UTC, logger.Discard())
	assert.Error(t, s.Check(context.Background()))
}
