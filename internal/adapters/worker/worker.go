// Package worker runs per-student grading on a bounded pool of goroutines.
package worker

import (
	"context"
	"strconv"
	"sync"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
	"github.com/cryptaliagy/iti1121-grading/pkg/metrics"
)

// DefaultSize grades one submission at a time.
const DefaultSize = 1

// Grader grades one matched submission.
type Grader interface {
	Grade(ctx context.Context, m model.MatchedSubmission) model.GradingOutcome
}

// job is one submission and its position in the batch.
type job struct {
	index      int
	submission model.MatchedSubmission
}

// Pool fans submissions out to a fixed number of workers and gathers the
// outcomes back in batch order.
type Pool struct {
	grader Grader
	size   int
	logger logger.Logger
}

// NewPool creates a pool around grader.
func NewPool(grader Grader, opts ...Option) *Pool {
	p := &Pool{
		grader: grader,
		size:   DefaultSize,
		logger: logger.Default().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Run grades every submission and returns the outcomes in input order.
// Once ctx is cancelled no further submission is started; submissions
// already in flight finish and the outcomes gathered so far are returned
// with ctx's error.
func (p *Pool) Run(ctx context.Context, subs []model.MatchedSubmission) ([]model.GradingOutcome, error) {
	workers := min(p.size, len(subs))
	jobs := make(chan job)
	results := make([]*model.GradingOutcome, len(subs))

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(log logger.Logger) {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				metrics.AddActiveWorkers(1)
				log.Debug(ctx, "grading submission",
					logger.Int("index", j.index+1),
					logger.String("username", j.submission.Roster.Identity.Username),
					logger.String("location", j.submission.Location))
				out := p.grader.Grade(ctx, j.submission)
				results[j.index] = &out
				metrics.AddActiveWorkers(-1)
			}
		}(p.logger.Named("worker-" + strconv.Itoa(i)))
	}

feed:
	for i, s := range subs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{index: i, submission: s}:
		}
	}
	close(jobs)
	wg.Wait()

	outcomes := make([]model.GradingOutcome, 0, len(subs))
	for _, r := range results {
		if r != nil {
			outcomes = append(outcomes, *r)
		}
	}
	if len(outcomes) == len(subs) {
		return outcomes, nil
	}
	p.logger.Warn(ctx, "batch cancelled",
		logger.Int("graded", len(outcomes)),
		logger.Int("remaining", len(subs)-len(outcomes)))
	return outcomes, ctx.Err()
}
