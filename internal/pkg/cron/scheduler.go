package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSkipped may be returned by a job that decided not to run this tick. It is logged at
// info level instead of as a failure.
var ErrSkipped = errors.New("job skipped")

type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error

	running sync.Mutex
}

// Scheduler runs jobs on fixed intervals until stopped.
type Scheduler struct {
	jobs   []*Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	// RunOnStart executes every job once as soon as Start is called.
	RunOnStart bool
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:        ctx,
		cancel:     cancel,
		RunOnStart: true,
	}
}

// AddJob registers fn to run every interval. Non-positive intervals are ignored.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		slog.Warn("Cron job not registered, interval must be positive", "name", name, "interval", interval)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, &Job{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
	slog.Info("Cron job registered", "name", name, "interval", interval)
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(job)
	}

	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

func (s *Scheduler) runJob(job *Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	if s.RunOnStart {
		s.executeJob(s.ctx, job)
	}

	for {
		select {
		case <-s.ctx.Done():
			slog.Info("Cron job stopping", "name", job.Name)
			return
		case <-ticker.C:
			s.executeJob(s.ctx, job)
		}
	}
}

// executeJob runs job unless its previous run is still going.
func (s *Scheduler) executeJob(ctx context.Context, job *Job) {
	if !job.running.TryLock() {
		slog.Warn("Cron job still running, tick skipped", "name", job.Name)
		return
	}
	defer job.running.Unlock()

	start := time.Now()
	slog.Debug("Cron job starting", "name", job.Name)

	err := job.Fn(ctx)
	switch {
	case err == nil:
		slog.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	case errors.Is(err, ErrSkipped):
		slog.Info("Cron job skipped", "name", job.Name, "reason", err)
	default:
		slog.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
	}
}

// RunOnce runs all jobs once with ctx.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		s.executeJob(ctx, job)
	}
}
