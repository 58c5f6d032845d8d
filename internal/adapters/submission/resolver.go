package submission

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/matching"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/naming"
)

// Warning is a non-fatal problem found while resolving a batch.
type Warning struct {
	Kind    model.ErrorKind
	Subject string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Subject, w.Message)
}

// Resolution is the outcome of matching a batch against the roster.
type Resolution struct {
	// Matches holds at most one submission per identity, sorted by
	// normalized name.
	Matches  []model.MatchedSubmission
	Warnings []Warning
}

// ByName indexes the matches by normalized submission name.
func (r Resolution) ByName() map[string]model.MatchedSubmission {
	out := make(map[string]model.MatchedSubmission, len(r.Matches))
	for _, m := range r.Matches {
		out[m.NormalizedName] = m
	}
	return out
}

// Unmatched returns the names of submissions that matched no roster entry.
func (r Resolution) Unmatched() []string {
	var out []string
	for _, w := range r.Warnings {
		if w.Kind == model.KindMatchNotFound {
			out = append(out, w.Subject)
		}
	}
	return out
}

// Resolver selects the latest submission per student.
type Resolver struct {
	matcher   matching.Matcher
	threshold int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMatcher sets the roster matcher. Defaults to exact then fuzzy.
func WithMatcher(m matching.Matcher) ResolverOption {
	return func(r *Resolver) {
		if m != nil {
			r.matcher = m
		}
	}
}

// WithThreshold sets the fuzzy match threshold.
func WithThreshold(threshold int) ResolverOption {
	return func(r *Resolver) {
		r.threshold = threshold
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		matcher:   matching.NewComposite(matching.Exact{}, matching.Fuzzy{}),
		threshold: matching.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scan lists the submission folders of an extracted batch. Folders whose
// names cannot be parsed are reported as warnings. Plain files are ignored.
func (r *Resolver) Scan(dir string) ([]model.SubmissionCandidate, []Warning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %w", ErrArchiveCorrupt, dir, err)
	}

	var (
		candidates []model.SubmissionCandidate
		warnings   []Warning
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name, ts, err := ParseFolderName(e.Name())
		if err != nil {
			warnings = append(warnings, Warning{Kind: model.KindFormat, Subject: e.Name(), Message: err.Error()})
			continue
		}
		candidates = append(candidates, model.SubmissionCandidate{
			RawName:   name,
			Timestamp: ts,
			Location:  filepath.Join(dir, e.Name()),
		})
	}
	return candidates, warnings, nil
}

// ResolveLatest keeps the newest candidate per normalized name and matches
// it against roster. When two names resolve to the same identity the newer
// submission wins and the other is reported as a duplicate.
func (r *Resolver) ResolveLatest(candidates []model.SubmissionCandidate, roster []model.RosterEntry) Resolution {
	var res Resolution

	latest := make(map[string]model.SubmissionCandidate)
	var names []string
	for _, c := range candidates {
		key := naming.Normalize(c.RawName)
		if key == "" {
			res.Warnings = append(res.Warnings, Warning{Kind: model.KindFormat, Subject: c.Location, Message: "empty student name"})
			continue
		}
		cur, seen := latest[key]
		if !seen {
			names = append(names, key)
		}
		if !seen || c.Timestamp.After(cur.Timestamp) {
			latest[key] = c
		}
	}
	sort.Strings(names)

	byIdentity := make(map[model.Identity]int)
	for _, key := range names {
		c := latest[key]
		hit := r.matcher.FindMatch(c.RawName, roster, r.threshold)
		if hit == nil {
			res.Warnings = append(res.Warnings, Warning{
				Kind:    model.KindMatchNotFound,
				Subject: c.RawName,
				Message: "could not match submission to any roster entry",
			})
			continue
		}

		m := model.MatchedSubmission{NormalizedName: key, Roster: *hit, Location: c.Location, Timestamp: c.Timestamp}
		idx, dup := byIdentity[hit.Identity]
		if !dup {
			byIdentity[hit.Identity] = len(res.Matches)
			res.Matches = append(res.Matches, m)
			continue
		}

		prev := res.Matches[idx]
		loser := m
		if m.Timestamp.After(prev.Timestamp) {
			res.Matches[idx], loser = m, prev
		}
		res.Warnings = append(res.Warnings, Warning{
			Kind:    model.KindDuplicateIdentity,
			Subject: loser.Location,
			Message: fmt.Sprintf("older submission for %s superseded", hit.Identity.Username),
		})
	}

	sort.SliceStable(res.Matches, func(i, j int) bool {
		return res.Matches[i].NormalizedName < res.Matches[j].NormalizedName
	})
	return res
}
