// Package config defines grader configuration and its loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and GRADER_* env vars.
//   - Command-line flags are applied by the caller after Load.
package config

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Submissions is the batch ZIP exported by the LMS, or an already
	// extracted directory.
	Submissions string `koanf:"submissions"`
	// GradingList is the roster CSV.
	GradingList string `koanf:"grading_list"`
	// TestDir holds the test sources; Prefix names the main test class.
	TestDir string `koanf:"test_dir"`
	Prefix  string `koanf:"prefix"`
	// Output is the gradebook CSV written after the batch.
	Output string `koanf:"output"`
	// AssignmentName is the score column header.
	AssignmentName string `koanf:"assignment_name"`
	// WorkDir is where batches are extracted and staged. Empty uses a
	// temporary directory removed after the run.
	WorkDir string `koanf:"work_dir"`

	// FailureIsNull writes an empty score instead of 0.000 for failures.
	FailureIsNull bool `koanf:"failure_is_null"`
	// GradeOnly stops after this many students; 0 grades everyone.
	GradeOnly int `koanf:"grade_only"`
	// Concurrency is the number of submissions graded at once.
	Concurrency int `koanf:"concurrency"`
	// PreprocessPackage strips package declarations from staged sources.
	PreprocessPackage bool `koanf:"preprocess_package"`
	// GradeMax scales the 0-100 score before it is written, e.g. 1 for a
	// fraction or 10 for a ten point lab.
	GradeMax float64 `koanf:"grade_max"`

	Matching  Matching  `koanf:"matching"`
	Toolchain Toolchain `koanf:"toolchain"`
	Parsing   Parsing   `koanf:"parsing"`
	Scoring   Scoring   `koanf:"scoring"`

	// HistoryDB is an optional SQLite file recording every run.
	HistoryDB string `koanf:"history_db"`
	// MetricsTextfile is an optional path for a Prometheus textfile export.
	MetricsTextfile string `koanf:"metrics_textfile"`
}

// Matching configures roster resolution.
type Matching struct {
	// Strategy is exact, fuzzy or composite.
	Strategy  string `koanf:"strategy"`
	Threshold int    `koanf:"threshold"`
}

// Toolchain configures the external compiler and runtime.
type Toolchain struct {
	Compiler        string        `koanf:"compiler"`
	Runtime         string        `koanf:"runtime"`
	SourceExtension string        `koanf:"source_extension"`
	Classpath       []string      `koanf:"classpath"`
	SupportFiles    []string      `koanf:"support_files"`
	CompileTimeout  time.Duration `koanf:"compile_timeout"`
	RunTimeout      time.Duration `koanf:"run_timeout"`
}

// Parsing configures how run output becomes points.
type Parsing struct {
	// Parser is pattern, junit or composite.
	Parser        string  `koanf:"parser"`
	Pattern       string  `koanf:"pattern"`
	PointsPerTest float64 `koanf:"points_per_test"`
}

// Scoring configures the grading strategy.
type Scoring struct {
	// Strategy is simple, weighted or drop_lowest.
	Strategy   string             `koanf:"strategy"`
	Weights    map[string]float64 `koanf:"weights"`
	Categories map[string]string  `koanf:"categories"`
	DropCount  int                `koanf:"drop_count"`
}

// New creates a Config with defaults. The context is accepted first to keep
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Output:         "graded_results.csv",
		AssignmentName: "Lab Grade",
		GradeMax:       100,
		Concurrency:    1,
		Matching: Matching{
			Strategy:  "composite",
			Threshold: 80,
		},
		Toolchain: Toolchain{
			Compiler:        "javac",
			Runtime:         "java",
			SourceExtension: ".java",
			SupportFiles:    []string{"TestUtils.java"},
			CompileTimeout:  2 * time.Minute,
			RunTimeout:      time.Minute,
		},
		Parsing: Parsing{
			Parser:        "composite",
			PointsPerTest: 1,
		},
		Scoring: Scoring{
			Strategy:  "simple",
			DropCount: 1,
		},
	}
}

// Validate checks that the inputs required for a bulk run are present and
// that numeric settings are in range.
func (c *Config) Validate() error {
	var problems []string
	required := map[string]string{
		"submissions":  c.Submissions,
		"grading_list": c.GradingList,
		"test_dir":     c.TestDir,
		"prefix":       c.Prefix,
		"output":       c.Output,
	}
	for _, key := range []string{"submissions", "grading_list", "test_dir", "prefix", "output"} {
		if strings.TrimSpace(required[key]) == "" {
			problems = append(problems, key+" is required")
		}
	}
	if c.GradeOnly < 0 {
		problems = append(problems, "grade_only must not be negative")
	}
	if c.Concurrency < 1 {
		problems = append(problems, "concurrency must be at least 1")
	}
	if c.GradeMax <= 0 || math.IsInf(c.GradeMax, 0) || math.IsNaN(c.GradeMax) {
		problems = append(problems, "grade_max must be positive")
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 100 {
		problems = append(problems, "matching.threshold must be within 0-100")
	}
	if c.Toolchain.CompileTimeout < 0 || c.Toolchain.RunTimeout < 0 {
		problems = append(problems, "toolchain timeouts must not be negative")
	}
	if c.Parsing.PointsPerTest <= 0 {
		problems = append(problems, "parsing.points_per_test must be positive")
	}
	if c.Scoring.DropCount < 0 {
		problems = append(problems, "scoring.drop_count must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
