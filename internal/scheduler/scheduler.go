// Package scheduler runs keep-alive work: a budgeted Loop for one CI job
// and a cron Scheduler for long-running daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
	timeout  time.Duration
	log      *slog.Logger

	mu   sync.Mutex
	base context.Context
}

// New creates a new scheduler with the given timezone. Each job run gets a
// context bounded by timeout.
func New(timezone string, timeout time.Duration, log *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}
	if log == nil {
		log = slog.Default()
	}

	cronLog := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		timeout:  timeout,
		log:      log,
		base:     context.Background(),
	}, nil
}

// AddJob adds a job with a cron schedule
// schedule format: "*/10 * * * *" (every ten minutes)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(s.baseContext(), s.timeout)
		defer cancel()

		s.log.Info("Starting job", "job", name)
		start := time.Now()

		if err := job(ctx); err != nil {
			s.log.Error("Job failed", "job", name, "error", err)
		} else {
			s.log.Info("Job completed", "job", name, "duration", time.Since(start))
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.Info("Added job", "job", name, "schedule", schedule)

	return nil
}

// Start begins running scheduled jobs. Runs started afterwards are
// cancelled when ctx is.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.log.Info("Starting scheduler", "timezone", s.timezone.String())
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("Stopping scheduler")
	return s.cron.Stop()
}

// RunNow runs the named job immediately and waits for it. It goes through
// the same chain as scheduled runs, so it is skipped while a scheduled run
// of the job is still going.
func (s *Scheduler) RunNow(name string) error {
	entryID, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	entry := s.cron.Entry(entryID)
	if !entry.Valid() {
		return fmt.Errorf("job %s is not scheduled", name)
	}

	s.log.Info("Running job now", "job", name)
	entry.WrappedJob.Run()
	return nil
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
