// Package scheduler runs the network's background jobs on cron schedules:
// nightly profile aggregation, nightly pattern detection, and the hourly
// intelligence expiry sweep.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"creditnet/pkg/requestcontext"
)

// Job is one scheduled unit of work. The context carries a pinned clock so
// every write within a run shares the same timestamp.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with panic recovery and overlap skipping.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New constructs a stopped Scheduler. Register jobs with Add, then Start.
func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Add registers a job under a cron spec. A tick that fires while the
// previous run of the same job is still active is skipped, not queued.
func (s *Scheduler) Add(spec, name string, job Job) error {
	var running atomic.Bool
	_, err := s.cron.AddFunc(spec, func() {
		if !running.CompareAndSwap(false, true) {
			s.logger.Warn("skipping scheduled run, previous run still active", "job", name)
			return
		}
		defer running.Store(false)
		s.run(name, job)
	})
	return err
}

func (s *Scheduler) run(name string, job Job) {
	ctx := requestcontext.WithTime(s.ctx, time.Now().UTC())
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("scheduled job panicked", "job", name, "panic", rec)
		}
	}()

	s.logger.Info("scheduled job started", "job", name)
	if err := job(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
		return
	}
	s.logger.Info("scheduled job finished", "job", name, "duration", time.Since(start))
}

// Start begins firing jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for the cron runner to drain.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunNow executes a job immediately outside its schedule. Used at startup
// to warm profiles and by operational tooling.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}
