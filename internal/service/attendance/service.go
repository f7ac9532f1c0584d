package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/config"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type SyncServiceImpl struct {
	client source.Client
	attendance.AttendanceRepository
	attendance.AdjustedWorkRepository
	tx         attendance.Transactor
	locker     attendance.SyncLocker
	reconciler *Reconciler
	adjuster   *Adjuster
	cfg        config.SyncConfig
	loc        *time.Location
	now        func() time.Time

	inflight singleflight.Group
	mu       sync.RWMutex
	last     *attendance.SyncReport
}

func NewSyncService(
	client source.Client,
	attendanceRepo attendance.AttendanceRepository,
	adjustedRepo attendance.AdjustedWorkRepository,
	tx attendance.Transactor,
	locker attendance.SyncLocker,
	cfg config.SyncConfig,
	loc *time.Location,
) attendance.SyncService {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	return &SyncServiceImpl{
		client:                 client,
		AttendanceRepository:   attendanceRepo,
		AdjustedWorkRepository: adjustedRepo,
		tx:                     tx,
		locker:                 locker,
		reconciler:             NewReconciler(attendanceRepo, tx, cfg.BatchSize, loc),
		adjuster:               NewAdjuster(attendanceRepo, adjustedRepo, tx, cfg.BatchSize, cfg.MaxWorkHours),
		cfg:                    cfg,
		loc:                    loc,
		now:                    time.Now,
	}
}

// RunSyncCycle implements attendance.SyncService. Callers arriving while a cycle of this
// process is running share its outcome; a cycle held by another process is reported as
// attendance.ErrSyncInProgress. The cycle ignores caller cancellation and is bounded by
// CycleTimeout alone.
func (s *SyncServiceImpl) RunSyncCycle(ctx context.Context) (attendance.SyncReport, error) {
	v, err, shared := s.inflight.Do("sync", func() (interface{}, error) {
		return s.runCycle(context.WithoutCancel(ctx))
	})
	if shared {
		slog.Info("Joined in-flight sync cycle")
	}
	report, _ := v.(attendance.SyncReport)
	return report, err
}

// cycle tracks the state machine of one run.
type cycle struct {
	report attendance.SyncReport
	logger *slog.Logger
}

func (c *cycle) transition(to attendance.SyncState) {
	c.logger.Info("Sync state transition", "from", c.report.State, "to", to)
	c.report.State = to
}

func (s *SyncServiceImpl) runCycle(ctx context.Context) (attendance.SyncReport, error) {
	runID := uuid.NewString()
	if id, err := uuid.NewV7(); err == nil {
		runID = id.String()
	}

	c := &cycle{
		report: attendance.SyncReport{RunID: runID, State: attendance.StateIdle, StartedAt: s.now()},
		logger: slog.With("run_id", runID),
	}

	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	unlock, err := s.locker.TryLock(ctx)
	if err != nil {
		if errors.Is(err, attendance.ErrSyncInProgress) {
			c.logger.Warn("Sync cycle rejected, another cycle holds the lock")
			return c.report, err
		}
		return s.fail(c, fmt.Errorf("acquire sync lock: %w", err))
	}
	defer unlock()

	// FETCHING
	c.transition(attendance.StateFetching)
	start, end, err := s.fetchWindow(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	c.report.WindowStart = start.Format("2006-01-02")
	c.report.WindowEnd = end.Format("2006-01-02")

	txs, err := s.client.FetchTransactions(ctx, start, end)
	if err != nil {
		return s.fail(c, fmt.Errorf("%w: transactions: %w", attendance.ErrSourceFetch, err))
	}
	c.logger.Info("Fetched transactions", "count", len(txs), "window_start", c.report.WindowStart, "window_end", c.report.WindowEnd)

	if len(txs) == 0 {
		c.logger.Info("No transactions to process")
		return s.finish(c), nil
	}

	employees, areas, err := s.fetchSnapshots(ctx)
	if err != nil {
		return s.fail(c, err)
	}

	// RECONCILING
	c.transition(attendance.StateReconciling)
	dir := ResolveEmployees(employees, areas)
	res, err := s.reconciler.Reconcile(ctx, txs, dir)
	c.report.Processed = res.Processed
	c.report.Skipped = res.Skipped
	c.report.Created = res.Created
	c.report.Updated = res.Updated
	if err != nil {
		return s.fail(c, err)
	}

	// ADJUSTING
	c.transition(attendance.StateAdjusting)
	adjusted, err := s.adjuster.Rebuild(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	c.report.Adjusted = adjusted

	c.logger.Info("Sync completed",
		"processed", c.report.Processed,
		"skipped", c.report.Skipped,
		"created", c.report.Created,
		"updated", c.report.Updated,
		"adjusted", c.report.Adjusted,
	)
	return s.finish(c), nil
}

// fetchWindow starts at the latest stored punch date, or LookbackDays before now when no
// attendance is stored yet, and ends now.
func (s *SyncServiceImpl) fetchWindow(ctx context.Context) (time.Time, time.Time, error) {
	end := s.now().In(s.loc)

	latest, err := s.AttendanceRepository.LatestPunchDate(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("determine fetch window: %w", err)
	}
	if latest == nil {
		return end.AddDate(0, 0, -s.cfg.LookbackDays), end, nil
	}
	return *latest, end, nil
}

// fetchSnapshots pulls the employee and area snapshots concurrently.
func (s *SyncServiceImpl) fetchSnapshots(ctx context.Context) ([]source.Employee, []source.Area, error) {
	var employees []source.Employee
	var areas []source.Area

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if employees, err = s.client.FetchEmployees(gctx); err != nil {
			return fmt.Errorf("%w: employees: %w", attendance.ErrSourceFetch, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if areas, err = s.client.FetchAreas(gctx); err != nil {
			return fmt.Errorf("%w: areas: %w", attendance.ErrSourceFetch, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return employees, areas, nil
}

func (s *SyncServiceImpl) finish(c *cycle) attendance.SyncReport {
	c.transition(attendance.StateDone)
	finished := s.now()
	c.report.FinishedAt = &finished
	s.remember(c.report)
	return c.report
}

func (s *SyncServiceImpl) fail(c *cycle, err error) (attendance.SyncReport, error) {
	c.logger.Error("Sync cycle failed", "state", c.report.State, "error", err)
	c.transition(attendance.StateFailed)
	finished := s.now()
	c.report.FinishedAt = &finished
	c.report.Error = err.Error()
	s.remember(c.report)
	return c.report, err
}

func (s *SyncServiceImpl) remember(report attendance.SyncReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &report
}

// LastReport implements attendance.SyncService.
func (s *SyncServiceImpl) LastReport() (attendance.SyncReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return attendance.SyncReport{}, false
	}
	return *s.last, true
}

// ListUnfetchedAdjusted implements attendance.SyncService.
func (s *SyncServiceImpl) ListUnfetchedAdjusted(ctx context.Context) ([]attendance.AdjustedWorkResponse, error) {
	var claimed []attendance.AdjustedWorkRecord
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		claimed, err = s.AdjustedWorkRepository.ClaimUnfetched(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list unfetched adjusted work: %w", err)
	}

	rows := make([]attendance.AdjustedWorkResponse, 0, len(claimed))
	for _, rec := range claimed {
		rows = append(rows, attendance.NewAdjustedWorkResponse(rec))
	}
	return rows, nil
}
