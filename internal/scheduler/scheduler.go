package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bluedeer/waterbill/internal/config"
	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by RunNow for a job that was never added.
var ErrUnknownJob = errors.New("unknown job")

// Job is a named task with a cron schedule.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Tasks are the functions behind the scheduled jobs. A nil task is skipped.
type Tasks struct {
	Refresh   func(ctx context.Context) error
	Recert    func(ctx context.Context) error
	Threshold func(ctx context.Context) error
	DueSoon   func(ctx context.Context) error
	Overdue   func(ctx context.Context) error
}

// Jobs pairs the tasks with the schedule from cfg.
func Jobs(cfg *config.Config, t Tasks) []Job {
	spec := func(name string) string {
		if s, ok := cfg.Schedule[name]; ok && s != "" {
			return s
		}
		return config.DefaultSchedule()[name]
	}

	candidates := []Job{
		{Name: config.JobRefresh, Spec: cfg.RefreshSpec(), Run: t.Refresh},
		{Name: config.JobRecert, Spec: spec(config.JobRecert), Run: t.Recert},
		{Name: config.JobThreshold, Spec: spec(config.JobThreshold), Run: t.Threshold},
		{Name: config.JobDueSoon, Spec: spec(config.JobDueSoon), Run: t.DueSoon},
		{Name: config.JobOverdue, Spec: spec(config.JobOverdue), Run: t.Overdue},
	}
	jobs := make([]Job, 0, len(candidates))
	for _, j := range candidates {
		if j.Run != nil {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// Scheduler wraps a cron runner. Jobs run with the context given to Start
// and never overlap with themselves.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	entries map[string]cron.EntryID

	mu  sync.Mutex
	ctx context.Context
}

// New creates a scheduler that evaluates schedules in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

// Add registers a job. An invalid cron expression is an error.
func (s *Scheduler) Add(job Job) error {
	if _, dup := s.entries[job.Name]; dup {
		return fmt.Errorf("job %q already added", job.Name)
	}
	id, err := s.cron.AddFunc(job.Spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", job.Spec, job.Name, err)
	}
	s.entries[job.Name] = id
	s.logger.Debug("scheduled job", "job", job.Name, "spec", job.Spec)
	return nil
}

// AddAll registers every job and returns all schedule errors together.
func (s *Scheduler) AddAll(jobs []Job) error {
	var errs []error
	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) run(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info("running scheduled job", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", job.Name, "error", err, "elapsed", time.Since(start))
		return
	}
	s.logger.Info("scheduled job finished", "job", job.Name, "elapsed", time.Since(start))
}

// Start begins running jobs in the background with ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.entries))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	return s.Stop(context.Background())
}

// RunNow runs a job synchronously through the same wrappers as a scheduled
// run.
func (s *Scheduler) RunNow(name string) error {
	id, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	s.cron.Entry(id).WrappedJob.Run()
	return nil
}

// Next returns the next run time of every job, by job name.
func (s *Scheduler) Next() map[string]time.Time {
	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// Names returns the registered job names in sorted order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
