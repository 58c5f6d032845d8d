// Package scoring turns parsed test results into a final 0-100 score.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// Strategy kinds accepted by New.
const (
	KindSimple     = "simple"
	KindWeighted   = "weighted"
	KindDropLowest = "drop_lowest"
)

// DefaultCategory receives tests with no explicit category.
const DefaultCategory = "default"

const (
	weightTolerance  = 1e-6
	defaultDropCount = 1
	maxScoreValue    = 100
)

// Strategy computes a score on a 0-100 scale.
type Strategy interface {
	// Score grades itemized test results.
	Score(items []model.TestScore) float64
	// Apply grades a single earned/possible pair.
	Apply(f model.ScoreFraction) float64
}

// Option configures New.
type Option func(*settings)

type settings struct {
	weights    map[string]float64
	categories map[string]string
	dropCount  int
}

// WithWeights sets the category weights used by the weighted strategy.
func WithWeights(weights map[string]float64) Option {
	return func(s *settings) {
		s.weights = weights
	}
}

// WithCategories maps test names to categories for the weighted strategy.
func WithCategories(categories map[string]string) Option {
	return func(s *settings) {
		s.categories = categories
	}
}

// WithDropCount sets how many items the drop-lowest strategy discards.
func WithDropCount(n int) Option {
	return func(s *settings) {
		s.dropCount = n
	}
}

// New builds a strategy by kind. An empty kind selects simple.
func New(kind string, opts ...Option) (Strategy, error) {
	s := settings{dropCount: defaultDropCount}
	for _, opt := range opts {
		opt(&s)
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindSimple:
		return Simple{}, nil
	case KindWeighted:
		return NewWeighted(s.weights, s.categories)
	case KindDropLowest:
		return NewDropLowest(s.dropCount)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
}

// Simple is the plain earned over possible percentage.
type Simple struct{}

// Score implements Strategy.
func (Simple) Score(items []model.TestScore) float64 {
	return model.Total(items).Percentage()
}

// Apply implements Strategy.
func (Simple) Apply(f model.ScoreFraction) float64 {
	return f.Percentage()
}

// Weighted combines per-category percentages using fixed weights.
type Weighted struct {
	weights    map[string]float64
	categories map[string]string
}

// NewWeighted validates that weights are non-negative and sum to 1.
func NewWeighted(weights map[string]float64, categories map[string]string) (*Weighted, error) {
	var sum float64
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: category %q has weight %v", ErrInvalidWeights, name, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("%w: weights must sum to 1.0, got %v", ErrInvalidWeights, sum)
	}

	w := &Weighted{
		weights:    make(map[string]float64, len(weights)),
		categories: make(map[string]string, len(categories)),
	}
	for k, v := range weights {
		w.weights[k] = v
	}
	for k, v := range categories {
		w.categories[k] = v
	}
	return w, nil
}

// Category returns the category of a test name.
func (w *Weighted) Category(test string) string {
	if c, ok := w.categories[test]; ok {
		return c
	}
	return DefaultCategory
}

// Score implements Strategy. Categories with nothing possible contribute 0.
func (w *Weighted) Score(items []model.TestScore) float64 {
	perCategory := make(map[string]model.ScoreFraction)
	for _, it := range items {
		c := w.Category(it.Name)
		perCategory[c] = perCategory[c].Add(it.Fraction)
	}

	var total float64
	for c, f := range perCategory {
		if f.Possible == 0 {
			continue
		}
		total += f.Earned / f.Possible * w.weights[c]
	}
	return clamp(total * maxScoreValue)
}

// Apply implements Strategy as a plain percentage.
func (w *Weighted) Apply(f model.ScoreFraction) float64 {
	return f.Percentage()
}

// DropLowest discards the n lowest percentage items before totalling.
type DropLowest struct {
	n int
}

// NewDropLowest returns a drop-lowest strategy. n must not be negative.
func NewDropLowest(n int) (*DropLowest, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeDropCount, n)
	}
	return &DropLowest{n: n}, nil
}

// Score implements Strategy. It returns 0 when every item is dropped.
func (d *DropLowest) Score(items []model.TestScore) float64 {
	if len(items) == 0 || d.n >= len(items) {
		return 0
	}
	sorted := make([]model.TestScore, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fraction.Percentage() < sorted[j].Fraction.Percentage()
	})
	return model.Total(sorted[d.n:]).Percentage()
}

// Apply implements Strategy as a plain percentage.
func (d *DropLowest) Apply(f model.ScoreFraction) float64 {
	return f.Percentage()
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScoreValue, v))
}
