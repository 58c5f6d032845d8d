// Package parsing extracts earned and possible points from test output.
package parsing

import (
	"fmt"
	"strings"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// Parser kinds accepted by New.
const (
	KindPattern   = "pattern"
	KindJUnit     = "junit"
	KindComposite = "composite"
)

// DefaultPointsPerTest is the value of one passing JUnit test case.
const DefaultPointsPerTest = 1.0

// Parser turns raw process output into a score fraction. Unrecognized
// output yields the zero fraction, never an error.
type Parser interface {
	Parse(output string) model.ScoreFraction
}

// Itemizer is implemented by parsers that can report per-test results.
type Itemizer interface {
	Itemize(output string) []model.TestScore
}

// Items returns per-test scores for output. Parsers that cannot itemize
// produce a single item holding their total.
func Items(p Parser, output string) []model.TestScore {
	if it, ok := p.(Itemizer); ok {
		return it.Itemize(output)
	}
	f := p.Parse(output)
	if f.Possible == 0 {
		return nil
	}
	return []model.TestScore{{Name: "total", Fraction: f}}
}

// Option configures New.
type Option func(*options)

type options struct {
	pointsPerTest float64
	pattern       string
}

// WithPointsPerTest sets the value of one JUnit test case. Non-positive
// values are ignored.
func WithPointsPerTest(points float64) Option {
	return func(o *options) {
		if points > 0 {
			o.pointsPerTest = points
		}
	}
}

// WithPattern replaces the default score-line template with a custom
// expression using the named groups max and total.
func WithPattern(expr string) Option {
	return func(o *options) {
		o.pattern = strings.TrimSpace(expr)
	}
}

// New builds a parser by kind. An empty kind selects composite, which tries
// the pattern parser before the JUnit parser.
func New(kind string, opts ...Option) (Parser, error) {
	o := options{pointsPerTest: DefaultPointsPerTest}
	for _, opt := range opts {
		opt(&o)
	}

	pattern := NewPattern()
	if o.pattern != "" {
		var err error
		if pattern, err = NewCustomPattern(o.pattern); err != nil {
			return nil, err
		}
	}
	junit := NewJUnitXML(o.pointsPerTest)

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindPattern:
		return pattern, nil
	case KindJUnit:
		return junit, nil
	case "", KindComposite:
		return NewComposite(pattern, junit), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownParser, kind)
	}
}
