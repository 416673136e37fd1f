package refresh

import (
	"context"
	"log/slog"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/portal"
)

// Outcome is the result of refreshing one property.
type Outcome string

const (
	// OutcomePending means the pipeline has not finished.
	OutcomePending Outcome = "pending"
	// OutcomeScraped means a bill was recorded.
	OutcomeScraped Outcome = "scraped"
	// OutcomeNotFound means the portal has no record of the account.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeFailed means a step returned an error.
	OutcomeFailed Outcome = "failed"
)

// Job is the state of one property as it moves through the pipeline.
type Job struct {
	Property model.Property

	// Bill is what the portal returned for the property's account.
	Bill *portal.Bill

	// Recorded is the stored bill snapshot.
	Recorded *model.WaterBill

	Outcome      Outcome
	Err          error
	ErrorMessage string

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string
}

// NewJob returns a pending job for p.
func NewJob(p model.Property) *Job {
	return &Job{Property: p, Outcome: OutcomePending}
}

// Step is one stage of a property refresh.
type Step interface {
	// Do runs the step. A step that has nothing to do for the job returns nil.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order for one job.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError runs the remaining steps after a failure.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep going after a step
// fails. The first error is still recorded on the job.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps for job. Cancellation is checked before each step.
// A job that is still pending after the last step is marked scraped.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	for _, step := range p.steps {
		if job.Outcome == OutcomeNotFound {
			break
		}

		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"account", job.Property.AccountNumber,
				"reason", ctx.Err(),
			)
			job.fail(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"account", job.Property.AccountNumber,
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"account", job.Property.AccountNumber,
				"error", err,
			)
			if job.Err == nil {
				job.fail(err)
			}
			if !p.continueOnError {
				return err
			}
		}

		job.PerformedSteps = append(job.PerformedSteps, step.Name())
	}

	if job.Outcome == OutcomePending {
		job.Outcome = OutcomeScraped
	}
	return nil
}

func (j *Job) fail(err error) {
	j.Outcome = OutcomeFailed
	j.Err = err
	j.ErrorMessage = err.Error()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
