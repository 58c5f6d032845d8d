package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	assignment  TEXT NOT NULL,
	total       INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	average     REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS outcomes (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	org_id      TEXT NOT NULL,
	username    TEXT NOT NULL,
	score       REAL,
	error_kind  TEXT NOT NULL,
	reason      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, username)
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	log         logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open connects to the SQLite database at dsn and creates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout: defaultBusyTimeout,
		log:         logger.Default().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s.db = db

	if err := s.applyPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	s.log.Debug(ctx, "history ledger ready", logger.String("dsn", dsn))
	return s, nil
}

func (s *SQLiteStore) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveRun implements Store.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, outcomes []model.GradingOutcome) error {
	if run.ID == "" {
		return ErrInvalidID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, assignment, total, succeeded, failed, average)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Assignment,
		run.Total, run.Succeeded, run.Failed, run.Average,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO outcomes (run_id, org_id, username, score, error_kind, reason, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if o.Roster == nil {
			continue
		}
		var score sql.NullFloat64
		if v, ok := o.ScoreValue(); ok {
			score = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, o.Roster.Identity.OrgID, o.Roster.Identity.Username, score,
			string(o.ErrorKind), o.Reason, o.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert outcome %s: %w", o.Roster.Identity.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug(ctx, "run saved", logger.String("runID", run.ID), logger.Int("outcomes", len(outcomes)))
	return nil
}

const runColumns = `id, started_at, finished_at, assignment, total, succeeded, failed, average`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                 Run
		started, finished int64
	)
	if err := row.Scan(&r.ID, &started, &finished, &r.Assignment, &r.Total, &r.Succeeded, &r.Failed, &r.Average); err != nil {
		return Run{}, err
	}
	r.StartedAt = time.UnixMilli(started).UTC()
	r.FinishedAt = time.UnixMilli(finished).UTC()
	return r, nil
}

// GetRun implements Store.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns implements Store.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListOutcomes implements Store.
func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, org_id, username, score, error_kind, reason, duration_ms
		 FROM outcomes WHERE run_id = ? ORDER BY username`, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o     Outcome
			score sql.NullFloat64
			kind  string
			ms    int64
		)
		if err := rows.Scan(&o.RunID, &o.OrgID, &o.Username, &score, &kind, &o.Reason, &ms); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if score.Valid {
			v := score.Float64
			o.Score = &v
		}
		o.ErrorKind = model.ErrorKind(kind)
		o.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}
