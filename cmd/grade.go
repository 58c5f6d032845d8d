package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cryptaliagy/iti1121-grading/internal/adapters/submission"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/toolchain"
	"github.com/cryptaliagy/iti1121-grading/internal/config"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/parsing"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/scoring"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade a single checked-out submission in place",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}
		codeDir, err := applyGradeFlags(cmd, cfg)
		if err != nil {
			return err
		}
		applyLogLevel(ctx, cfg.LogLevel)
		return runGrade(ctx, cfg, codeDir, cmd.OutOrStdout())
	},
}

func init() {
	f := gradeCmd.Flags()
	f.StringP("test-dir", "t", "", "Directory holding the instructor tests")
	f.StringP("prefix", "p", "", "Main test class name, without extension")
	f.StringP("code-dir", "c", ".", "Directory holding the student code")
	f.StringArray("classpath", nil, "Extra classpath entry; repeatable")
	f.BoolP("verbose", "v", false, "Log at debug level")
}

// applyGradeFlags overrides cfg with the flags set on the command line and
// returns the code directory.
func applyGradeFlags(cmd *cobra.Command, cfg *config.Config) (string, error) {
	f := cmd.Flags()
	for name, dst := range map[string]*string{"test-dir": &cfg.TestDir, "prefix": &cfg.Prefix} {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetString(name)
		if err != nil {
			return "", err
		}
		*dst = v
	}
	if f.Changed("classpath") {
		cp, err := f.GetStringArray("classpath")
		if err != nil {
			return "", err
		}
		cfg.Toolchain.Classpath = cp
	}
	if verbose, _ := f.GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	return f.GetString("code-dir")
}

// runGrade copies the tests into codeDir, compiles and runs them there and
// writes the test output and a grade summary to out.
func runGrade(ctx context.Context, cfg *config.Config, codeDir string, out io.Writer) error {
	log := logger.Default().Named("cli")

	var problems []string
	if cfg.TestDir == "" {
		problems = append(problems, "test_dir is required")
	}
	if cfg.Prefix == "" {
		problems = append(problems, "prefix is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", config.ErrInvalidConfig, strings.Join(problems, "; "))
	}

	dir, err := filepath.Abs(codeDir)
	if err != nil {
		return fmt.Errorf("resolve code dir: %w", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("code dir %s is not a directory", codeDir)
	}

	parser, err := parsing.New(cfg.Parsing.Parser,
		parsing.WithPattern(cfg.Parsing.Pattern),
		parsing.WithPointsPerTest(cfg.Parsing.PointsPerTest))
	if err != nil {
		return err
	}
	strategy, err := scoring.New(cfg.Scoring.Strategy,
		scoring.WithWeights(cfg.Scoring.Weights),
		scoring.WithCategories(cfg.Scoring.Categories),
		scoring.WithDropCount(cfg.Scoring.DropCount))
	if err != nil {
		return err
	}

	tc := cfg.Toolchain
	assets, err := submission.LocateTestAssets(cfg.TestDir, cfg.Prefix, tc.SourceExtension, tc.SupportFiles)
	if err != nil {
		return err
	}
	if err := submission.CopyAssets(assets, dir); err != nil {
		return err
	}
	log.Debug(ctx, "test files copied", logger.String("dir", dir), logger.Int("count", len(assets.Files)))

	runner := toolchain.New(
		toolchain.WithCompiler(tc.Compiler),
		toolchain.WithRuntime(tc.Runtime),
		toolchain.WithSourceExtension(tc.SourceExtension),
		toolchain.WithCompileTimeout(tc.CompileTimeout),
		toolchain.WithRunTimeout(tc.RunTimeout),
	)
	inv := toolchain.Invocation{WorkDir: dir, Target: cfg.Prefix, Classpath: tc.Classpath}

	ok, compiled, err := runner.Compile(ctx, inv)
	if err != nil {
		return interrupted(ctx, err)
	}
	if !ok {
		fmt.Fprintf(out, "Compilation failed with error:\n%s\n", strings.TrimRight(compiled.Stderr, "\n"))
		return &exitError{code: 1, err: errors.New("exiting due to compilation failure")}
	}
	fmt.Fprintln(out, "Compilation successful!")

	ran, err := runner.Run(ctx, inv)
	if err != nil {
		return interrupted(ctx, err)
	}
	fmt.Fprint(out, ran.Stdout)
	if ran.TimedOut {
		return &exitError{code: 1, err: errors.New(ran.Stderr)}
	}
	if ran.ExitCode != 0 {
		return &exitError{code: ran.ExitCode, err: fmt.Errorf("tests exited with code %d: %s", ran.ExitCode, strings.TrimSpace(ran.Stderr))}
	}

	items := parsing.Items(parser, ran.Stdout)
	writeGradeSummary(out, model.Total(items), strategy.Score(items))
	return nil
}

func writeGradeSummary(w io.Writer, total model.ScoreFraction, pct float64) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nFinal Grade Summary:\n", rule)
	fmt.Fprintf(w, "Total Points: %.1f / %.1f\n", total.Earned, total.Possible)
	fmt.Fprintf(w, "Percentage: %.1f%%\n%s\n", pct, rule)
}

// interrupted maps an error seen after cancellation to exitInterrupted.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &exitError{code: exitInterrupted, err: err}
	}
	return err
}
