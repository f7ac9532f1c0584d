package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
)

type SyncJobs struct {
	syncService attendance.SyncService
	interval    time.Duration
}

func NewSyncJobs(syncService attendance.SyncService, interval time.Duration) *SyncJobs {
	return &SyncJobs{
		syncService: syncService,
		interval:    interval,
	}
}

func (j *SyncJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("attendance_sync", j.interval, j.RunSync)
}

// RunSync triggers one sync cycle. A cycle already running elsewhere is not a failure.
func (j *SyncJobs) RunSync(ctx context.Context) error {
	report, err := j.syncService.RunSyncCycle(ctx)
	if errors.Is(err, attendance.ErrSyncInProgress) {
		return fmt.Errorf("%w: %v", ErrSkipped, err)
	}
	if err != nil {
		return err
	}

	slog.Info("Scheduled sync finished",
		"run_id", report.RunID,
		"processed", report.Processed,
		"adjusted", report.Adjusted,
	)
	return nil
}
