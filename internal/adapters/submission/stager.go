package submission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
)

// DefaultSourceExtension is the extension of student source files.
const DefaultSourceExtension = ".java"

const archiveExtension = ".zip"

// Stager copies a submission's sources into a flat staging directory.
type Stager struct {
	ext string
	log logger.Logger
}

// StagerOption configures a Stager.
type StagerOption func(*Stager)

// WithSourceExtension sets the extension of source files.
func WithSourceExtension(ext string) StagerOption {
	return func(s *Stager) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

// WithStagerLogger sets the logger.
func WithStagerLogger(l logger.Logger) StagerOption {
	return func(s *Stager) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStager creates a Stager.
func NewStager(opts ...StagerOption) *Stager {
	s := &Stager{
		ext: DefaultSourceExtension,
		log: logger.Default().Named("stager"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extension returns the configured source extension.
func (s *Stager) Extension() string { return s.ext }

// Stage fills stagingDir from location. Source files at the top level of
// location are copied directly; otherwise the sources inside every archive
// at the top level are extracted without their directory prefixes. It
// returns the staged file names in sorted order.
func (s *Stager) Stage(ctx context.Context, location, stagingDir string) ([]string, error) {
	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaging, err)
	}

	var sources, archives []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch {
		case hasExtension(e.Name(), s.ext):
			sources = append(sources, e.Name())
		case hasExtension(e.Name(), archiveExtension):
			archives = append(archives, e.Name())
		}
	}
	if len(sources) == 0 && len(archives) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSourceFiles, filepath.Base(location))
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaging, err)
	}

	if len(sources) > 0 {
		for _, name := range sources {
			if err := copyFile(filepath.Join(location, name), filepath.Join(stagingDir, name)); err != nil {
				return nil, err
			}
		}
		s.log.Debug(ctx, "copied sources", logger.Int("count", len(sources)), logger.String("dir", stagingDir))
		return sortedUnique(sources), nil
	}

	var staged []string
	for _, name := range archives {
		written, err := extractFlattened(filepath.Join(location, name), stagingDir, s.ext)
		if err != nil {
			return nil, err
		}
		s.log.Debug(ctx, "extracted archive", logger.String("archive", name), logger.Int("count", len(written)))
		staged = append(staged, written...)
	}
	if len(staged) == 0 {
		return nil, fmt.Errorf("%w: archives in %s hold no %s files", ErrNoSourceFiles, filepath.Base(location), s.ext)
	}
	return sortedUnique(staged), nil
}

// hasExtension reports whether name ends in ext, ignoring case.
func hasExtension(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}
