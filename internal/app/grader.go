// Package app coordinates grading of one submission and of a whole batch.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cryptaliagy/iti1121-grading/internal/adapters/submission"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/toolchain"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/parsing"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/scoring"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
	"github.com/cryptaliagy/iti1121-grading/pkg/metrics"
)

// ReasonCompilationFailed is the outcome reason for a failed compile.
const ReasonCompilationFailed = "compilation failed"

// ReasonCancelled is the outcome reason for a grading stopped by the caller.
const ReasonCancelled = "grading interrupted"

// Toolchain compiles and runs a staged submission.
type Toolchain interface {
	Compile(ctx context.Context, inv toolchain.Invocation) (bool, model.ProcessOutput, error)
	Run(ctx context.Context, inv toolchain.Invocation) (model.ProcessOutput, error)
}

// Stager copies a submission's sources into a staging directory.
type Stager interface {
	Stage(ctx context.Context, location, stagingDir string) ([]string, error)
}

// Preprocessor rewrites staged sources in place.
type Preprocessor interface {
	ProcessDir(ctx context.Context, dir string) error
}

// SubmissionGrader grades one matched submission.
type SubmissionGrader interface {
	Grade(ctx context.Context, m model.MatchedSubmission) model.GradingOutcome
}

// Grader runs the per-student pipeline: stage, preprocess, copy tests,
// compile, run, parse and score. It never returns an error; every failure
// becomes a failed outcome.
type Grader struct {
	stager       Stager
	toolchain    Toolchain
	parser       parsing.Parser
	strategy     scoring.Strategy
	preprocessor Preprocessor

	testDir      string
	prefix       string
	ext          string
	supportFiles []string
	classpath    []string
	workDir      string

	logger logger.Logger
}

// GraderOption applies a configuration option to the Grader.
type GraderOption func(*Grader)

// WithStager sets the submission stager.
func WithStager(s Stager) GraderOption {
	return func(g *Grader) {
		if s != nil {
			g.stager = s
		}
	}
}

// WithToolchain sets the compiler and runtime.
func WithToolchain(t Toolchain) GraderOption {
	return func(g *Grader) {
		if t != nil {
			g.toolchain = t
		}
	}
}

// WithParser sets the output parser.
func WithParser(p parsing.Parser) GraderOption {
	return func(g *Grader) {
		if p != nil {
			g.parser = p
		}
	}
}

// WithStrategy sets the grading strategy.
func WithStrategy(s scoring.Strategy) GraderOption {
	return func(g *Grader) {
		if s != nil {
			g.strategy = s
		}
	}
}

// WithPreprocessor enables source preprocessing.
func WithPreprocessor(p Preprocessor) GraderOption {
	return func(g *Grader) {
		g.preprocessor = p
	}
}

// WithTests sets the instructor test directory, the main test prefix and
// the helper files copied with it.
func WithTests(dir, prefix string, supportFiles []string) GraderOption {
	return func(g *Grader) {
		g.testDir = dir
		g.prefix = prefix
		if supportFiles != nil {
			g.supportFiles = supportFiles
		}
	}
}

// WithSourceExtension sets the extension of the instructor test files. When
// unset, the stager's extension is used.
func WithSourceExtension(ext string) GraderOption {
	return func(g *Grader) {
		if ext != "" {
			g.ext = ext
		}
	}
}

// WithClasspath sets extra classpath entries.
func WithClasspath(cp []string) GraderOption {
	return func(g *Grader) {
		g.classpath = cp
	}
}

// WithWorkDir sets the root under which staging directories are created.
func WithWorkDir(dir string) GraderOption {
	return func(g *Grader) {
		if dir != "" {
			g.workDir = dir
		}
	}
}

// WithGraderLogger sets a custom logger for the grader.
func WithGraderLogger(l logger.Logger) GraderOption {
	return func(g *Grader) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGrader constructs a Grader. A toolchain is required; the remaining
// collaborators default to a Java stager, the composite parser and the
// simple strategy.
func NewGrader(opts ...GraderOption) (*Grader, error) {
	g := &Grader{
		stager:       submission.NewStager(),
		strategy:     scoring.Simple{},
		supportFiles: submission.DefaultSupportFiles,
		workDir:      os.TempDir(),
		logger:       logger.Default().Named("grader"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.parser == nil {
		p, err := parsing.New(parsing.KindComposite)
		if err != nil {
			return nil, err
		}
		g.parser = p
	}
	if g.ext == "" {
		g.ext = submission.DefaultSourceExtension
		if s, ok := g.stager.(interface{ Extension() string }); ok {
			g.ext = s.Extension()
		}
	}
	if g.toolchain == nil {
		return nil, fmt.Errorf("%w: toolchain", ErrMissingDependency)
	}
	if g.testDir == "" || g.prefix == "" {
		return nil, fmt.Errorf("%w: test directory and prefix", ErrMissingDependency)
	}
	return g, nil
}

// Grade implements SubmissionGrader.
func (g *Grader) Grade(ctx context.Context, m model.MatchedSubmission) (out model.GradingOutcome) {
	start := time.Now()
	log := g.logger
	fields := []logger.Field{
		logger.String("username", m.Roster.Identity.Username),
		logger.String("student", m.Roster.FullName()),
	}

	defer func() {
		if r := recover(); r != nil {
			out = model.Fail(m.Roster, model.KindInternal, fmt.Sprintf("panic: %v", r))
		}
		out.Duration = time.Since(start)
		metrics.RecordGradingDuration(out.Duration.Seconds())
		metrics.RecordGraded(out.Succeeded)
		if out.Succeeded {
			score, _ := out.ScoreValue()
			metrics.RecordScore(score)
			log.Info(ctx, "graded submission", append(fields,
				logger.Float64("score", score),
				logger.Duration("duration", out.Duration))...)
			return
		}
		metrics.RecordFailure(out.ErrorKind.String())
		log.Warn(ctx, "grading failed", append(fields,
			logger.String("kind", out.ErrorKind.String()),
			logger.String("reason", out.Reason))...)
	}()

	return g.grade(ctx, m)
}

func (g *Grader) grade(ctx context.Context, m model.MatchedSubmission) model.GradingOutcome {
	if ctx.Err() != nil {
		return model.Fail(m.Roster, model.KindCancelled, ReasonCancelled)
	}
	dir, err := g.stagingDir(m)
	if err != nil {
		return model.Fail(m.Roster, model.KindStagingFailure, err.Error())
	}

	if _, err := g.stager.Stage(ctx, m.Location, dir); err != nil {
		return model.Fail(m.Roster, classifyStaging(err), err.Error())
	}
	if g.preprocessor != nil {
		if err := g.preprocessor.ProcessDir(ctx, dir); err != nil {
			return model.Fail(m.Roster, model.KindStagingFailure, err.Error())
		}
	}

	assets, err := submission.LocateTestAssets(g.testDir, g.prefix, g.ext, g.supportFiles)
	if err != nil {
		return model.Fail(m.Roster, model.KindTestAssetsMissing, err.Error())
	}
	if err := submission.CopyAssets(assets, dir); err != nil {
		return model.Fail(m.Roster, model.KindStagingFailure, err.Error())
	}

	inv := toolchain.Invocation{WorkDir: dir, Target: assets.Main, Classpath: g.classpath}
	ok, compiled, err := g.toolchain.Compile(ctx, inv)
	if err != nil && ctx.Err() != nil {
		return model.Fail(m.Roster, model.KindCancelled, ReasonCancelled)
	}
	if err != nil {
		return model.Fail(m.Roster, model.KindCompilationFailure, err.Error())
	}
	if !ok {
		g.logger.Debug(ctx, "compiler output", logger.String("stderr", compiled.Stderr))
		return model.Fail(m.Roster, model.KindCompilationFailure, ReasonCompilationFailed)
	}

	run, err := g.toolchain.Run(ctx, inv)
	if err != nil && ctx.Err() != nil {
		return model.Fail(m.Roster, model.KindCancelled, ReasonCancelled)
	}
	if err != nil {
		return model.Fail(m.Roster, model.KindExecutionFailure, err.Error())
	}
	if run.TimedOut {
		return model.Fail(m.Roster, model.KindExecutionTimeout, run.Stderr)
	}
	if run.ExitCode != 0 {
		return model.Fail(m.Roster, model.KindExecutionFailure,
			fmt.Sprintf("test execution failed with exit code %d", run.ExitCode))
	}

	items := parsing.Items(g.parser, run.Stdout)
	total := model.Total(items)
	if total.Possible == 0 {
		return model.Succeed(m.Roster, 0, total, model.KindParseDegenerate)
	}
	return model.Succeed(m.Roster, g.strategy.Score(items), total, model.KindNone)
}

// stagingDir returns a fresh per-student directory under the work dir.
func (g *Grader) stagingDir(m model.MatchedSubmission) (string, error) {
	name := m.Roster.Identity.Username
	if name == "" {
		name = filepath.Base(m.Location)
	}
	dir := filepath.Join(g.workDir, "grading", name)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("%w: %w", submission.ErrStaging, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", submission.ErrStaging, err)
	}
	return dir, nil
}

func classifyStaging(err error) model.ErrorKind {
	switch {
	case errors.Is(err, submission.ErrNoSourceFiles):
		return model.KindNoSourceFiles
	case errors.Is(err, submission.ErrArchiveCorrupt):
		return model.KindArchiveCorrupt
	default:
		return model.KindStagingFailure
	}
}
