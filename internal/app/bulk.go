package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cryptaliagy/iti1121-grading/internal/adapters/roster"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/submission"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/worker"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
	"github.com/cryptaliagy/iti1121-grading/pkg/metrics"
)

// Batch describes one bulk grading run.
type Batch struct {
	// RosterPath is the class list CSV.
	RosterPath string
	// SubmissionsPath is the batch archive or an already extracted directory.
	SubmissionsPath string
	// Assignment names the run in the report and history.
	Assignment string
	// GradeOnly limits how many students are graded; zero grades everyone.
	GradeOnly int
}

// Result is everything a run produced.
type Result struct {
	Summary  Summary
	Roster   []model.RosterEntry
	Outcomes []model.GradingOutcome
	Warnings []submission.Warning
}

// Bulk grades every resolved submission of a batch. Submissions are graded
// one at a time unless a larger concurrency is configured.
type Bulk struct {
	grader      SubmissionGrader
	concurrency int
	resolver    *submission.Resolver
	workDir     string
	newRunID    func() string
	logger      logger.Logger
}

// BulkOption applies a configuration option to Bulk.
type BulkOption func(*Bulk)

// WithGrader sets the per-student grader.
func WithGrader(g SubmissionGrader) BulkOption {
	return func(b *Bulk) {
		if g != nil {
			b.grader = g
		}
	}
}

// WithConcurrency sets how many submissions are graded at once.
func WithConcurrency(n int) BulkOption {
	return func(b *Bulk) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithResolver sets the submission resolver.
func WithResolver(r *submission.Resolver) BulkOption {
	return func(b *Bulk) {
		if r != nil {
			b.resolver = r
		}
	}
}

// WithBatchWorkDir sets where the batch archive is extracted.
func WithBatchWorkDir(dir string) BulkOption {
	return func(b *Bulk) {
		if dir != "" {
			b.workDir = dir
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) BulkOption {
	return func(b *Bulk) {
		if id != "" {
			b.newRunID = func() string { return id }
		}
	}
}

// WithBulkLogger sets a custom logger for the coordinator.
func WithBulkLogger(l logger.Logger) BulkOption {
	return func(b *Bulk) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBulk constructs a Bulk coordinator. A grader is required.
func NewBulk(opts ...BulkOption) (*Bulk, error) {
	b := &Bulk{
		concurrency: worker.DefaultSize,
		resolver:    submission.NewResolver(),
		newRunID:    func() string { return uuid.NewString() },
		logger:      logger.Default().Named("bulk"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.grader == nil {
		return nil, fmt.Errorf("%w: grader", ErrMissingDependency)
	}
	return b, nil
}

// Run loads the roster, resolves submissions and grades them. Outcomes are
// returned in resolution order.
// Roster and batch archive failures abort the run before anyone is graded.
// Cancelling ctx stops grading between students and the partial result is
// returned with ctx's error.
func (b *Bulk) Run(ctx context.Context, batch Batch) (*Result, error) {
	if batch.RosterPath == "" || batch.SubmissionsPath == "" {
		return nil, fmt.Errorf("%w: roster and submissions are required", ErrInvalidBatch)
	}
	runID := b.newRunID()
	log := b.logger
	started := time.Now()

	entries, err := roster.Load(batch.RosterPath)
	if err != nil {
		return nil, err
	}
	metrics.SetRosterSize(len(entries))

	workDir := b.workDir
	if workDir == "" {
		workDir = filepath.Dir(batch.SubmissionsPath)
	}
	dir, err := submission.ExtractBatch(ctx, batch.SubmissionsPath, filepath.Join(workDir, "submissions"))
	if err != nil {
		return nil, err
	}

	candidates, warnings, err := b.resolver.Scan(dir)
	if err != nil {
		return nil, err
	}
	resolution := b.resolver.ResolveLatest(candidates, entries)
	warnings = append(warnings, resolution.Warnings...)
	for _, w := range warnings {
		metrics.RecordResolutionWarning(w.Kind.String())
		log.Warn(ctx, "skipping submission",
			logger.String("kind", w.Kind.String()),
			logger.String("subject", w.Subject),
			logger.String("reason", w.Message))
	}
	metrics.SetMatchedSubmissions(len(resolution.Matches))

	matches := resolution.Matches
	if batch.GradeOnly > 0 && batch.GradeOnly < len(matches) {
		matches = matches[:batch.GradeOnly]
	}
	log.Info(ctx, "starting batch",
		logger.String("runID", runID),
		logger.Int("roster", len(entries)),
		logger.Int("submissions", len(resolution.Matches)),
		logger.Int("grading", len(matches)),
		logger.Int("workers", b.concurrency))

	pool := worker.NewPool(b.grader, worker.WithSize(b.concurrency), worker.WithLogger(log.Named("pool")))
	outcomes, cancelled := pool.Run(ctx, matches)

	summary := Summarize(runID, entries, resolution.Matches, outcomes, resolution.Unmatched())
	summary.Assignment = batch.Assignment
	summary.StartedAt = started
	summary.FinishedAt = time.Now()
	metrics.SetAverageScore(summary.AverageScore)

	log.Info(ctx, "batch finished",
		logger.String("runID", runID),
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("failed", summary.Failed),
		logger.Float64("average", summary.AverageScore))

	return &Result{Summary: summary, Roster: entries, Outcomes: outcomes, Warnings: warnings}, cancelled
}
