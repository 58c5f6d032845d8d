package toolchain

import (
	"time"

	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithCompiler sets the compiler binary.
func WithCompiler(bin string) Option {
	return func(r *Runner) {
		if bin != "" {
			r.compiler = bin
		}
	}
}

// WithRuntime sets the runtime binary.
func WithRuntime(bin string) Option {
	return func(r *Runner) {
		if bin != "" {
			r.runtime = bin
		}
	}
}

// WithSourceExtension sets the extension appended to the compile target.
func WithSourceExtension(ext string) Option {
	return func(r *Runner) {
		if ext != "" {
			r.ext = ext
		}
	}
}

// WithClasspathSeparator overrides the platform list separator.
func WithClasspathSeparator(sep string) Option {
	return func(r *Runner) {
		if sep != "" {
			r.sep = sep
		}
	}
}

// WithCompileTimeout bounds compilation. Zero disables the limit.
func WithCompileTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.compileTimeout = d
		}
	}
}

// WithRunTimeout bounds test execution. Zero disables the limit.
func WithRunTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.runTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}
