package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// DefaultPattern matches lines such as
// "Grade for Exercise1 (out of a possible 10): 8.5".
const DefaultPattern = `Grade for (?P<name>.+?) \(out of (?:a\s+)?possible (?P<max>\d+(?:\.\d+)?)\): (?P<total>\d+(?:\.\d+)?)`

var defaultPattern = regexp.MustCompile(DefaultPattern)

// Pattern sums every score line matched by its expression.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern returns a parser for the default score-line template.
func NewPattern() *Pattern {
	return &Pattern{re: defaultPattern}
}

// NewCustomPattern compiles expr. Lines only count when the expression
// captures numeric max and total groups.
func NewCustomPattern(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return &Pattern{re: re}, nil
}

// Parse implements Parser.
func (p *Pattern) Parse(output string) model.ScoreFraction {
	return model.Total(p.Itemize(output))
}

// Itemize implements Itemizer. Items without a name group are named after
// their line number.
func (p *Pattern) Itemize(output string) []model.TestScore {
	maxIdx, totalIdx, nameIdx := p.re.SubexpIndex("max"), p.re.SubexpIndex("total"), p.re.SubexpIndex("name")
	if maxIdx < 0 || totalIdx < 0 {
		return nil
	}

	var items []model.TestScore
	for n, line := range strings.Split(output, "\n") {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		possible, err := strconv.ParseFloat(m[maxIdx], 64)
		if err != nil {
			continue
		}
		earned, err := strconv.ParseFloat(m[totalIdx], 64)
		if err != nil {
			continue
		}
		name := fmt.Sprintf("line %d", n+1)
		if nameIdx >= 0 && m[nameIdx] != "" {
			name = strings.TrimSpace(m[nameIdx])
		}
		items = append(items, model.TestScore{
			Name:     name,
			Fraction: model.ScoreFraction{Earned: earned, Possible: possible},
		})
	}
	return items
}
