// Package toolchain compiles and runs test programs in a staging directory.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
	"github.com/cryptaliagy/iti1121-grading/pkg/metrics"
)

// Defaults for a Java toolchain.
const (
	DefaultCompiler        = "javac"
	DefaultRuntime         = "java"
	DefaultSourceExtension = ".java"
	DefaultCompileTimeout  = 2 * time.Minute
	DefaultRunTimeout      = time.Minute

	// TimeoutExitCode is reported for a run that exceeded its timeout.
	TimeoutExitCode = -1
)

// Invocation describes one compile or run step.
type Invocation struct {
	// WorkDir is the directory the child process runs in.
	WorkDir string
	// Target is the main class name, without extension.
	Target string
	// Classpath entries; the working directory is added when missing.
	Classpath []string
}

// Runner invokes the compiler and runtime. It never changes the process
// working directory and is safe for concurrent use.
type Runner struct {
	compiler       string
	runtime        string
	ext            string
	sep            string
	compileTimeout time.Duration
	runTimeout     time.Duration
	log            logger.Logger
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		compiler:       DefaultCompiler,
		runtime:        DefaultRuntime,
		ext:            DefaultSourceExtension,
		sep:            string(os.PathListSeparator),
		compileTimeout: DefaultCompileTimeout,
		runTimeout:     DefaultRunTimeout,
		log:            logger.Default().Named("toolchain"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compile compiles the target source file. It reports true only when the
// compiler exits with status 0.
func (r *Runner) Compile(ctx context.Context, inv Invocation) (bool, model.ProcessOutput, error) {
	args, err := r.args(inv, inv.Target+r.ext)
	if err != nil {
		return false, model.ProcessOutput{}, err
	}

	out, err := r.execute(ctx, r.compileTimeout, inv.WorkDir, r.compiler, args)
	metrics.RecordToolchainDuration(metrics.StepCompile, out.DurationSeconds())
	if err != nil {
		return false, out, err
	}
	if out.TimedOut {
		out.Stderr = fmt.Sprintf("Compilation timed out after %s", seconds(r.compileTimeout))
		r.log.Warn(ctx, "compilation timed out", logger.String("dir", inv.WorkDir), logger.Duration("timeout", r.compileTimeout))
		return false, out, nil
	}
	if out.ExitCode != 0 {
		r.log.Debug(ctx, "compilation failed",
			logger.String("dir", inv.WorkDir),
			logger.Int("exitCode", out.ExitCode),
			logger.String("stderr", out.Stderr))
		return false, out, nil
	}
	return true, out, nil
}

// Run executes the compiled target. On timeout the process group is killed
// and the output carries TimeoutExitCode and whatever stdout was produced.
func (r *Runner) Run(ctx context.Context, inv Invocation) (model.ProcessOutput, error) {
	args, err := r.args(inv, inv.Target)
	if err != nil {
		return model.ProcessOutput{}, err
	}

	out, err := r.execute(ctx, r.runTimeout, inv.WorkDir, r.runtime, args)
	metrics.RecordToolchainDuration(metrics.StepRun, out.DurationSeconds())
	if err != nil {
		return out, err
	}
	if out.TimedOut {
		out.ExitCode = TimeoutExitCode
		out.Stderr = fmt.Sprintf("Test execution timed out after %s", seconds(r.runTimeout))
		r.log.Warn(ctx, "test execution timed out", logger.String("dir", inv.WorkDir), logger.Duration("timeout", r.runTimeout))
	}
	return out, nil
}

func (r *Runner) args(inv Invocation, target string) ([]string, error) {
	if info, err := os.Stat(inv.WorkDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrWorkDir, inv.WorkDir)
	}
	if len(inv.Classpath) == 0 {
		return []string{target}, nil
	}
	cp, err := ResolveClasspath(inv.Classpath)
	if err != nil {
		return nil, err
	}
	return []string{"-cp", strings.Join(cp, r.sep), target}, nil
}

// ResolveClasspath makes every entry absolute relative to the current
// directory, checks it exists and appends "." when it is missing.
func ResolveClasspath(entries []string) ([]string, error) {
	out := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		if e == "." {
			out = append(out, e)
			continue
		}
		abs, err := filepath.Abs(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrClasspathEntry, e, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrClasspathEntry, e)
		}
		out = append(out, abs)
	}
	if !slices.Contains(out, ".") {
		out = append(out, ".")
	}
	return out, nil
}

// execute runs name in dir and waits for it to exit or for timeout to pass.
// Cancellation of ctx is returned as an error; expiry of timeout is not.
func (r *Runner) execute(ctx context.Context, timeout time.Duration, dir, name string, args []string) (model.ProcessOutput, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = dir
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug(ctx, "starting process", logger.String("cmd", name), logger.Any("args", args), logger.String("dir", dir))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return model.ProcessOutput{}, fmt.Errorf("%w: %s: %w", ErrStart, name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var (
		waitErr error
		killed  bool
	)
	select {
	case <-runCtx.Done():
		killProcessGroup(cmd)
		waitErr = <-done
		killed = true
	case waitErr = <-done:
	}

	out := model.ProcessOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err := ctx.Err(); err != nil {
		out.ExitCode = TimeoutExitCode
		return out, fmt.Errorf("%s interrupted: %w", name, err)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && (killed || waitErr != nil) {
		out.TimedOut = true
		out.ExitCode = TimeoutExitCode
		return out, nil
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		return out, fmt.Errorf("%w: %s: %w", ErrStart, name, waitErr)
	}
	return out, nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%g seconds", d.Seconds())
}
