// Package batch runs a flat collection of independent jobs under a
// concurrency limit: a new job starts as soon as an in-flight slot frees
// up, and the limit is never exceeded.
package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/atlasforge/atlasforge/pkg/logger"
)

// Job is one independent unit of work
type Job struct {
	ID     string
	Action func(ctx context.Context) error
}

// JobResult records the outcome of one job
type JobResult struct {
	ID       string
	Err      error
	Duration time.Duration
}

// Report summarizes one batch run. Success is true iff no job failed and
// the run was not aborted.
type Report struct {
	Results   []JobResult
	Successes int
	Failures  int
	Aborted   bool
	Success   bool
	Duration  time.Duration
}

// Notifier receives per-job events. Nil notifiers are allowed.
type Notifier interface {
	JobStarted(id string)
	JobSucceeded(id string, duration time.Duration)
	JobFailed(id string, err error, duration time.Duration)
}

// Runner executes job batches. One Runner is good for one run; Abort is
// sticky.
type Runner struct {
	logger   logger.Logger
	notifier Notifier
	aborted  atomic.Bool
}

// NewRunner creates a batch runner
func NewRunner(log logger.Logger, notifier Notifier) *Runner {
	return &Runner{
		logger:   log,
		notifier: notifier,
	}
}

// Abort stops topping up the queue. Jobs already started run to
// completion; in-flight work is never force-killed.
func (r *Runner) Abort() {
	r.aborted.Store(true)
}

// Run executes jobs with at most limit in flight. Start order is FIFO;
// completion order is whatever the jobs do.
func (r *Runner) Run(ctx context.Context, jobs []Job, limit int) *Report {
	if limit < 1 {
		limit = 1
	}
	started := time.Now()

	report := &Report{}
	done := make(chan JobResult)

	next := 0
	inFlight := 0

	launch := func(job Job) {
		go func() {
			if r.notifier != nil {
				r.notifier.JobStarted(job.ID)
			}
			jobStart := time.Now()
			err := r.runJob(ctx, job)
			done <- JobResult{ID: job.ID, Err: err, Duration: time.Since(jobStart)}
		}()
	}

	// Top up until the in-flight set reaches the limit or the queue
	// empties; then wait for any one completion and loop.
	for next < len(jobs) && inFlight < limit && !r.aborted.Load() {
		launch(jobs[next])
		next++
		inFlight++
	}

	for inFlight > 0 {
		result := <-done
		inFlight--
		r.record(report, result)

		for next < len(jobs) && inFlight < limit && !r.aborted.Load() {
			launch(jobs[next])
			next++
			inFlight++
		}
	}

	r.finish(report, started)
	return report
}

// RunSequential executes jobs one at a time in input order; the result
// list preserves that order. This is the deterministic mode.
func (r *Runner) RunSequential(ctx context.Context, jobs []Job) *Report {
	started := time.Now()
	report := &Report{}

	for _, job := range jobs {
		if r.aborted.Load() {
			break
		}
		if r.notifier != nil {
			r.notifier.JobStarted(job.ID)
		}
		jobStart := time.Now()
		err := r.runJob(ctx, job)
		r.record(report, JobResult{ID: job.ID, Err: err, Duration: time.Since(jobStart)})
	}

	r.finish(report, started)
	return report
}

// runJob invokes the job body, converting panics into failures
func (r *Runner) runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %q panicked: %v", job.ID, rec)
		}
	}()
	return job.Action(ctx)
}

func (r *Runner) record(report *Report, result JobResult) {
	report.Results = append(report.Results, result)
	if result.Err != nil {
		report.Failures++
		if r.notifier != nil {
			r.notifier.JobFailed(result.ID, result.Err, result.Duration)
		}
		if r.logger != nil {
			r.logger.Debug("Batch job failed",
				logger.WithField("job", result.ID),
				logger.WithField("error", result.Err))
		}
	} else {
		report.Successes++
		if r.notifier != nil {
			r.notifier.JobSucceeded(result.ID, result.Duration)
		}
	}
}

func (r *Runner) finish(report *Report, started time.Time) {
	report.Aborted = r.aborted.Load()
	report.Duration = time.Since(started)
	report.Success = report.Failures == 0 && !report.Aborted
}
