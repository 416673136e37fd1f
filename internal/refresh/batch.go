package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchProcessor refreshes many properties with a concurrency limit.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each property.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent lookups.
	concurrency int

	// delay is the minimum spacing between lookup starts across all workers.
	delay time.Duration

	logger *slog.Logger

	results []*Job
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent lookups.
// Default is 1: the portal is scraped one property at a time.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithDelay sets the politeness delay between lookups. The delay is shared
// by all workers, so lookups start at most once per d regardless of the
// concurrency limit.
func WithDelay(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     1,
		results:         make([]*Job, 0),
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch refreshes the properties and returns one job per property in
// input order. A failed property never stops the batch; the returned error
// is only set when ctx is cancelled, in which case properties that were never
// started have a nil job.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, properties []model.Property) ([]*Job, error) {
	bp.logger.Info("starting refresh batch",
		"total_properties", len(properties),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	bp.results = make([]*Job, len(properties))

	err := bp.run(ctx, properties, func(job *Job, i int) {
		bp.mu.Lock()
		bp.results[i] = job
		bp.mu.Unlock()
	})

	bp.logger.Info("refresh batch complete",
		"total_properties", len(properties),
		"elapsed", time.Since(startTime),
	)
	return bp.results, err
}

// ProcessBatchWithCallback refreshes the properties and calls callback as
// each one completes. The callback may be called from several goroutines.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	properties []model.Property,
	callback func(job *Job, index int),
) error {
	return bp.run(ctx, properties, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, properties []model.Property, done func(*Job, int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if bp.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(bp.delay), 1)
	}

	for i, p := range properties {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Debug("refreshing property",
				"account", p.AccountNumber,
				"index", i+1,
				"total", len(properties),
			)

			job := NewJob(p)
			if err := bp.pipelineFactory().Execute(gctx, job); err != nil {
				bp.logger.Warn("refresh failed",
					"account", p.AccountNumber,
					"error", err,
				)
			}
			done(job, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
