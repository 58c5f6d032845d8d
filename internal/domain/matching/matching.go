// Package matching resolves free-text submission names to roster entries.
package matching

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/naming"
)

// DefaultThreshold is the minimum fuzzy similarity accepted as a match.
const DefaultThreshold = 80

// Matcher kinds accepted by New.
const (
	KindExact     = "exact"
	KindFuzzy     = "fuzzy"
	KindComposite = "composite"
)

// Matcher finds the roster entry a submission name refers to. It returns nil
// when nothing matches.
type Matcher interface {
	FindMatch(target string, candidates []model.RosterEntry, threshold int) *model.RosterEntry
}

// New builds a matcher by kind. An empty kind selects composite.
func New(kind string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindExact:
		return Exact{}, nil
	case KindFuzzy:
		return Fuzzy{}, nil
	case "", KindComposite:
		return NewComposite(Exact{}, Fuzzy{}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatcher, kind)
	}
}

// Exact matches on equality of normalized names. The threshold is ignored.
type Exact struct{}

// FindMatch implements Matcher.
func (Exact) FindMatch(target string, candidates []model.RosterEntry, _ int) *model.RosterEntry {
	return exactMatch(naming.Normalize(target), candidates)
}

func exactMatch(normalized string, candidates []model.RosterEntry) *model.RosterEntry {
	for i := range candidates {
		if naming.Normalize(candidates[i].FullName()) == normalized {
			return &candidates[i]
		}
	}
	return nil
}

// Fuzzy falls back to edit-distance similarity when no exact match exists.
type Fuzzy struct{}

// FindMatch implements Matcher. The best scoring candidate is returned when
// its similarity reaches threshold; ties go to the earliest candidate.
func (Fuzzy) FindMatch(target string, candidates []model.RosterEntry, threshold int) *model.RosterEntry {
	normalized := naming.Normalize(target)
	if normalized == "" || len(candidates) == 0 {
		return nil
	}
	if m := exactMatch(normalized, candidates); m != nil {
		return m
	}

	best, bestScore := -1, -1
	for i := range candidates {
		score := Similarity(normalized, naming.Normalize(candidates[i].FullName()))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore < threshold {
		return nil
	}
	return &candidates[best]
}

var indelParams = levenshtein.NewParams().SubCost(2)

// Similarity returns a 0-100 ratio derived from the insert/delete edit
// distance between a and b. Two empty strings score 0.
func Similarity(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 0
	}
	d := levenshtein.Distance(a, b, indelParams)
	return int(math.Round(100 * float64(total-d) / float64(total)))
}

// Composite tries each matcher in order and returns the first hit.
type Composite struct {
	matchers []Matcher
}

// NewComposite builds a composite over matchers in the given order.
func NewComposite(matchers ...Matcher) *Composite {
	return &Composite{matchers: matchers}
}

// FindMatch implements Matcher.
func (c *Composite) FindMatch(target string, candidates []model.RosterEntry, threshold int) *model.RosterEntry {
	for _, m := range c.matchers {
		if hit := m.FindMatch(target, candidates, threshold); hit != nil {
			return hit
		}
	}
	return nil
}
