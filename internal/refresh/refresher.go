package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
)

// ErrAlreadyRunning is returned when a refresh is requested while another
// one is in progress.
var ErrAlreadyRunning = errors.New("a refresh is already running")

// Refresher scrapes all active properties and records the run.
// Only one run is active at a time.
type Refresher struct {
	store       Store
	searcher    Searcher
	logger      *slog.Logger
	now         func() time.Time
	delay       time.Duration
	concurrency int

	mu sync.Mutex
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithRefreshLogger sets the logger.
func WithRefreshLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

// WithClock sets the clock used for bill status and log timestamps.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

// WithPoliteness sets the delay between lookups.
func WithPoliteness(d time.Duration) RefresherOption {
	return func(r *Refresher) { r.delay = d }
}

// WithWorkers sets how many lookups run at once.
func WithWorkers(n int) RefresherOption {
	return func(r *Refresher) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRefresher creates a Refresher.
func NewRefresher(store Store, searcher Searcher, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		store:       store,
		searcher:    searcher,
		logger:      slog.Default(),
		now:         time.Now,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pipeline returns the per-property pipeline.
func (r *Refresher) Pipeline() *Pipeline {
	p := New(WithLogger(r.logger))
	p.AddSteps(
		NewLookupStep(r.searcher, r.logger),
		NewDetailsStep(r.store),
		NewRecordStep(r.store, r.now, r.logger),
	)
	return p
}

// Run refreshes every active property. The scrape log is written whether
// the run succeeds or not. Per-property failures are listed in the log
// details and do not fail the run.
func (r *Refresher) Run(ctx context.Context) (*model.ScrapeLog, error) {
	if !r.mu.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer r.mu.Unlock()

	scrape := model.NewScrapeLog(r.now())
	if err := r.store.StartScrape(ctx, scrape); err != nil {
		return nil, err
	}
	r.logger.Info("refresh started", "run_id", scrape.RunID)

	jobs, err := r.run(ctx)
	for _, job := range jobs {
		if job == nil {
			continue
		}
		switch job.Outcome {
		case OutcomeScraped:
			scrape.PropertiesScraped++
		case OutcomeNotFound:
			scrape.Details.NotFound = append(scrape.Details.NotFound, job.Property.AccountNumber)
		case OutcomeFailed:
			scrape.Details.Failed = append(scrape.Details.Failed, job.Property.AccountNumber)
		}
	}

	scrape.CompletedAt = r.now()
	scrape.Success = err == nil
	if err != nil {
		scrape.ErrorMessage = err.Error()
	}

	// The log is written even when ctx was cancelled.
	if ferr := r.store.FinishScrape(context.WithoutCancel(ctx), scrape); ferr != nil {
		err = errors.Join(err, ferr)
	}

	r.logger.Info("refresh finished",
		"run_id", scrape.RunID,
		"scraped", scrape.PropertiesScraped,
		"not_found", len(scrape.Details.NotFound),
		"failed", len(scrape.Details.Failed),
		"success", scrape.Success,
	)
	return scrape, err
}

func (r *Refresher) run(ctx context.Context) ([]*Job, error) {
	properties, err := r.store.ListActiveProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	if len(properties) == 0 {
		r.logger.Info("no properties to scrape")
		return nil, nil
	}

	bp := NewBatchProcessor(r.Pipeline,
		WithBatchLogger(r.logger),
		WithConcurrency(r.concurrency),
		WithDelay(r.delay),
	)
	return bp.ProcessBatch(ctx, properties)
}

// RefreshProperty runs the pipeline for a single property without writing a
// scrape log.
func (r *Refresher) RefreshProperty(ctx context.Context, p model.Property) (*Job, error) {
	job := NewJob(p)
	err := r.Pipeline().Execute(ctx, job)
	return job, err
}
