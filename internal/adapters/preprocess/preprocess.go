// Package preprocess rewrites staged student sources before compilation.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
)

// ErrNoSources is returned when a directory holds no files to preprocess.
var ErrNoSources = errors.New("no source files to preprocess")

// Handler transforms the contents of one source file.
type Handler interface {
	Name() string
	Process(src []byte) []byte
}

// Chain applies its handlers, in registration order, to source files.
type Chain struct {
	handlers []Handler
	ext      string
	log      logger.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithExtension selects which files in a directory are processed.
func WithExtension(ext string) Option {
	return func(c *Chain) {
		if ext != "" {
			c.ext = ext
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.log = l
		}
	}
}

// NewChain creates an empty Chain.
func NewChain(opts ...Option) *Chain {
	c := &Chain{ext: ".java", log: logger.Default().Named("preprocess")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register appends h to the chain.
func (c *Chain) Register(h Handler) *Chain {
	c.handlers = append(c.handlers, h)
	return c
}

// Len returns the number of registered handlers.
func (c *Chain) Len() int { return len(c.handlers) }

// ProcessFile rewrites path in place.
func (c *Chain) ProcessFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", path, err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", path, err)
	}
	for _, h := range c.handlers {
		src = h.Process(src)
		c.log.Debug(ctx, "preprocessed file", logger.String("file", filepath.Base(path)), logger.String("handler", h.Name()))
	}
	if perm := info.Mode().Perm(); perm&0o200 == 0 {
		if err := os.Chmod(path, perm|0o200); err != nil {
			return fmt.Errorf("preprocess %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, src, info.Mode().Perm()); err != nil {
		return fmt.Errorf("preprocess %s: %w", path, err)
	}
	return nil
}

// ProcessDir rewrites every matching file at the top level of dir.
func (c *Chain) ProcessDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), c.ext) {
			continue
		}
		if err := c.ProcessFile(ctx, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
		n++
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSources, dir)
	}
	return nil
}

var packageDecl = regexp.MustCompile(`(?m)^[ \t]*package[ \t]+[A-Za-z_][\w.]*[ \t]*;[ \t]*\r?\n?`)

// PackageStripper removes package declarations so that sources compile
// alongside the tests in a flat directory.
type PackageStripper struct{}

// Name implements Handler.
func (PackageStripper) Name() string { return "package_stripper" }

// Process implements Handler.
func (PackageStripper) Process(src []byte) []byte {
	return packageDecl.ReplaceAll(src, nil)
}
