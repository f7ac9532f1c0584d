package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJobsUntilStopped(t *testing.T) {
	s := NewScheduler()
	var runs int32
	s.AddJob("count", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	s.Start()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))
}

func TestScheduler_IgnoresNonPositiveInterval(t *testing.T) {
	s := NewScheduler()
	s.AddJob("disabled", 0, func(ctx context.Context) error { return nil })
	assert.Zero(t, s.Len())
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := NewScheduler()
	release := make(chan struct{})
	var runs int32
	s.AddJob("slow", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, time.Millisecond)

	// The first run holds the job, so this returns immediately.
	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	close(release)
	<-done
}

type stubSyncService struct {
	err   error
	calls int
}

func (s *stubSyncService) RunSyncCycle(ctx context.Context) (attendance.SyncReport, error) {
	s.calls++
	return attendance.SyncReport{RunID: "run", State: attendance.StateDone}, s.err
}

func (s *stubSyncService) ListUnfetchedAdjusted(ctx context.Context) ([]attendance.AdjustedWorkResponse, error) {
	return nil, nil
}

func (s *stubSyncService) LastReport() (attendance.SyncReport, bool) {
	return attendance.SyncReport{}, false
}

func TestSyncJobs_RunSync(t *testing.T) {
	ctx := context.Background()

	svc := &stubSyncService{}
	assert.NoError(t, NewSyncJobs(svc, time.Minute).RunSync(ctx))
	assert.Equal(t, 1, svc.calls)

	svc = &stubSyncService{err: attendance.ErrSyncInProgress}
	err := NewSyncJobs(svc, time.Minute).RunSync(ctx)
	assert.ErrorIs(t, err, ErrSkipped)

	boom := errors.New("boom")
	svc = &stubSyncService{err: boom}
	assert.ErrorIs(t, NewSyncJobs(svc, time.Minute).RunSync(ctx), boom)
}

func TestSyncJobs_RegisterJobs(t *testing.T) {
	s := NewScheduler()
	NewSyncJobs(&stubSyncService{}, time.Minute).RegisterJobs(s)
	assert.Equal(t, 1, s.Len())

	s = NewScheduler()
	NewSyncJobs(&stubSyncService{}, 0).RegisterJobs(s)
	assert.Zero(t, s.Len())
}
