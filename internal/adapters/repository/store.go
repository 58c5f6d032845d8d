// Package repository persists the history of grading runs.
package repository

import (
	"context"
	"time"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// Run is the summary row of one grading batch.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Assignment string
	Total      int
	Succeeded  int
	Failed     int
	Average    float64
}

// Outcome is the stored result of one student in a run.
type Outcome struct {
	RunID     string
	OrgID     string
	Username  string
	Score     *float64
	ErrorKind model.ErrorKind
	Reason    string
	Duration  time.Duration
}

// Store provides read/write access to the grading history.
type Store interface {
	// SaveRun stores run and its outcomes atomically.
	SaveRun(ctx context.Context, run Run, outcomes []model.GradingOutcome) error
	// GetRun returns one run. Returns ErrNotFound for an unknown id.
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// ListOutcomes returns the outcomes of a run ordered by username.
	ListOutcomes(ctx context.Context, runID string) ([]Outcome, error)
	Close() error
}
