package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cryptaliagy/iti1121-grading/internal/adapters/preprocess"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/repository"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/roster"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/submission"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/toolchain"
	"github.com/cryptaliagy/iti1121-grading/internal/app"
	"github.com/cryptaliagy/iti1121-grading/internal/config"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/matching"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/parsing"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/scoring"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
	"github.com/cryptaliagy/iti1121-grading/pkg/metrics"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT.
const exitInterrupted = 130

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Grade every submission in an LMS export",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}
		if err := applyBulkFlags(cmd, cfg); err != nil {
			return err
		}
		applyLogLevel(ctx, cfg.LogLevel)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runBulk(ctx, cfg, cmd.OutOrStdout())
	},
}

func init() {
	f := bulkCmd.Flags()
	f.StringP("submissions", "s", "", "Submission export ZIP or extracted directory")
	f.StringP("grading-list", "g", "", "Roster CSV exported from the gradebook")
	f.StringP("test-dir", "t", "", "Directory holding the instructor tests")
	f.StringP("prefix", "p", "", "Main test class name, without extension")
	f.StringP("output", "o", "", "Gradebook CSV to write (default graded_results.csv)")
	f.StringP("assignment-name", "a", "", "Score column header (default \"Lab Grade\")")
	f.StringArrayP("classpath", "c", nil, "Extra classpath entry; repeatable")
	f.BoolP("failure-is-null", "F", false, "Leave the score empty for failed gradings")
	f.BoolP("verbose", "v", false, "Log at debug level")
	f.IntP("grade-only", "G", 0, "Grade only the first N resolved submissions")
	f.BoolP("preprocess-code", "P", false, "Strip package declarations from student sources")
	f.IntP("jobs", "j", 0, "Number of submissions graded at once (default 1)")
	f.String("work-dir", "", "Directory for extraction and staging (default: a temporary directory)")
	f.String("history-db", "", "SQLite file recording this run")
	f.String("metrics-textfile", "", "Write Prometheus metrics to this file after the run")
}

// applyBulkFlags overrides cfg with every flag set on the command line.
func applyBulkFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	strs := map[string]*string{
		"submissions":      &cfg.Submissions,
		"grading-list":     &cfg.GradingList,
		"test-dir":         &cfg.TestDir,
		"prefix":           &cfg.Prefix,
		"output":           &cfg.Output,
		"assignment-name":  &cfg.AssignmentName,
		"work-dir":         &cfg.WorkDir,
		"history-db":       &cfg.HistoryDB,
		"metrics-textfile": &cfg.MetricsTextfile,
	}
	for name, dst := range strs {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if f.Changed("classpath") {
		cp, err := f.GetStringArray("classpath")
		if err != nil {
			return err
		}
		cfg.Toolchain.Classpath = cp
	}
	bools := map[string]*bool{
		"failure-is-null": &cfg.FailureIsNull,
		"preprocess-code": &cfg.PreprocessPackage,
	}
	for name, dst := range bools {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	ints := map[string]*int{
		"grade-only": &cfg.GradeOnly,
		"jobs":       &cfg.Concurrency,
	}
	for name, dst := range ints {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if verbose, _ := f.GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	return nil
}

// runBulk grades the batch described by cfg, writes the gradebook to
// cfg.Output and the post-grading report to out.
func runBulk(ctx context.Context, cfg *config.Config, out io.Writer) error {
	log := logger.Default().Named("cli")

	workDir := cfg.WorkDir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "grader-")
		if err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	}

	bulk, err := buildBulk(cfg, workDir)
	if err != nil {
		return err
	}

	res, runErr := bulk.Run(ctx, app.Batch{
		RosterPath:      cfg.GradingList,
		SubmissionsPath: cfg.Submissions,
		Assignment:      cfg.AssignmentName,
		GradeOnly:       cfg.GradeOnly,
	})
	if res == nil {
		return runErr
	}

	if runErr == nil {
		if err := writeGradebook(cfg, res); err != nil {
			return err
		}
		log.Info(ctx, "gradebook written", logger.String("path", cfg.Output))
	}
	if err := app.WriteReport(out, res.Summary); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.HistoryDB != "" {
		if err := saveHistory(context.WithoutCancel(ctx), cfg.HistoryDB, res); err != nil {
			log.Error(ctx, "failed to record run history", logger.Error(err))
		}
	}
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Error(ctx, "failed to export metrics", logger.Error(err))
		}
	}

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return &exitError{code: exitInterrupted, err: fmt.Errorf("interrupted after %d submissions; gradebook not written: %w", len(res.Outcomes), runErr)}
	}
	return runErr
}

// buildBulk wires the grading pipeline from cfg.
func buildBulk(cfg *config.Config, workDir string) (*app.Bulk, error) {
	matcher, err := matching.New(cfg.Matching.Strategy)
	if err != nil {
		return nil, err
	}
	parser, err := parsing.New(cfg.Parsing.Parser,
		parsing.WithPattern(cfg.Parsing.Pattern),
		parsing.WithPointsPerTest(cfg.Parsing.PointsPerTest))
	if err != nil {
		return nil, err
	}
	strategy, err := scoring.New(cfg.Scoring.Strategy,
		scoring.WithWeights(cfg.Scoring.Weights),
		scoring.WithCategories(cfg.Scoring.Categories),
		scoring.WithDropCount(cfg.Scoring.DropCount))
	if err != nil {
		return nil, err
	}

	tc := cfg.Toolchain
	runner := toolchain.New(
		toolchain.WithCompiler(tc.Compiler),
		toolchain.WithRuntime(tc.Runtime),
		toolchain.WithSourceExtension(tc.SourceExtension),
		toolchain.WithCompileTimeout(tc.CompileTimeout),
		toolchain.WithRunTimeout(tc.RunTimeout),
	)

	opts := []app.GraderOption{
		app.WithToolchain(runner),
		app.WithStager(submission.NewStager(submission.WithSourceExtension(tc.SourceExtension))),
		app.WithSourceExtension(tc.SourceExtension),
		app.WithParser(parser),
		app.WithStrategy(strategy),
		app.WithTests(cfg.TestDir, cfg.Prefix, tc.SupportFiles),
		app.WithClasspath(tc.Classpath),
		app.WithWorkDir(workDir),
	}
	if cfg.PreprocessPackage {
		chain := preprocess.NewChain(preprocess.WithExtension(tc.SourceExtension)).
			Register(preprocess.PackageStripper{})
		opts = append(opts, app.WithPreprocessor(chain))
	}
	grader, err := app.NewGrader(opts...)
	if err != nil {
		return nil, err
	}

	return app.NewBulk(
		app.WithGrader(grader),
		app.WithConcurrency(cfg.Concurrency),
		app.WithResolver(submission.NewResolver(
			submission.WithMatcher(matcher),
			submission.WithThreshold(cfg.Matching.Threshold))),
		app.WithBatchWorkDir(workDir),
	)
}

func writeGradebook(cfg *config.Config, res *app.Result) error {
	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	werr := roster.WriteResults(f, res.Roster, res.Outcomes, roster.WriteOptions{
		AssignmentName: cfg.AssignmentName,
		GradeMax:       cfg.GradeMax,
		FailureIsNull:  cfg.FailureIsNull,
	})
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}

func saveHistory(ctx context.Context, dsn string, res *app.Result) error {
	store, err := repository.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	s := res.Summary
	return store.SaveRun(ctx, repository.Run{
		ID:         s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Assignment: s.Assignment,
		Total:      s.Total,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Average:    s.AverageScore,
	}, res.Outcomes)
}
