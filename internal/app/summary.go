package app

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// Summary aggregates the outcomes of a run.
type Summary struct {
	RunID      string
	Assignment string
	StartedAt  time.Time
	FinishedAt time.Time

	Total     int
	Succeeded int
	Failed    int
	// AverageScore is the mean score of successful outcomes.
	AverageScore float64

	// ZeroScore lists successful outcomes that scored 0.
	ZeroScore []model.GradingOutcome
	// FailedOutcomes lists outcomes without a score.
	FailedOutcomes []model.GradingOutcome
	// Unsubmitted lists roster entries with no matched submission.
	Unsubmitted []model.RosterEntry
	// Unrostered lists submission names that matched no roster entry.
	Unrostered []string
}

// Summarize builds a Summary from a finished run.
func Summarize(runID string, roster []model.RosterEntry, matches []model.MatchedSubmission, outcomes []model.GradingOutcome, unrostered []string) Summary {
	s := Summary{RunID: runID, Total: len(outcomes), Unrostered: slices.Clone(unrostered)}
	slices.Sort(s.Unrostered)

	var sum float64
	for _, o := range outcomes {
		score, ok := o.ScoreValue()
		if !o.Succeeded || !ok {
			s.Failed++
			s.FailedOutcomes = append(s.FailedOutcomes, o)
			continue
		}
		s.Succeeded++
		sum += score
		if score == 0 {
			s.ZeroScore = append(s.ZeroScore, o)
		}
	}
	if s.Succeeded > 0 {
		s.AverageScore = sum / float64(s.Succeeded)
	}

	submitted := make(map[model.Identity]struct{}, len(matches))
	for _, m := range matches {
		submitted[m.Roster.Identity] = struct{}{}
	}
	for _, e := range roster {
		if _, ok := submitted[e.Identity]; !ok {
			s.Unsubmitted = append(s.Unsubmitted, e)
		}
	}
	return s
}

// WriteReport renders the post-grading report.
func WriteReport(w io.Writer, s Summary) error {
	rw := &reportWriter{w: w}
	rule := strings.Repeat("=", 60)
	line := strings.Repeat("-", 60)

	rw.printf("%s\nPOST-GRADING REPORT\n%s\n", rule, rule)
	if s.RunID != "" {
		rw.printf("Run: %s\n", s.RunID)
	}
	if s.Assignment != "" {
		rw.printf("Assignment: %s\n", s.Assignment)
	}

	rw.printf("\nSTUDENTS WHO RECEIVED A GRADE OF 0 (%d):\n%s\n", len(s.ZeroScore), line)
	if len(s.ZeroScore) == 0 {
		rw.printf("  none\n")
	}
	for _, o := range s.ZeroScore {
		reason := o.Reason
		if reason == "" {
			reason = "Test failures"
			if o.ErrorKind == model.KindParseDegenerate {
				reason = "No score lines in test output"
			}
		}
		rw.outcome(o, reason)
	}

	rw.printf("\nSTUDENTS WITH FAILED/NULL GRADES (%d):\n%s\n", len(s.FailedOutcomes), line)
	if len(s.FailedOutcomes) == 0 {
		rw.printf("  none\n")
	}
	for _, o := range s.FailedOutcomes {
		reason := o.Reason
		if reason == "" {
			reason = "Grading failed"
		}
		rw.outcome(o, fmt.Sprintf("%s (%s)", reason, o.ErrorKind))
	}

	rw.printf("\nSTUDENTS IN ROSTER WITHOUT SUBMISSIONS (%d):\n%s\n", len(s.Unsubmitted), line)
	if len(s.Unsubmitted) == 0 {
		rw.printf("  none\n")
	}
	for _, e := range s.Unsubmitted {
		rw.printf("  - %s (%s)\n", e.FullName(), e.Identity.Username)
	}

	rw.printf("\nSUBMISSIONS NOT IN ROSTER (%d):\n%s\n", len(s.Unrostered), line)
	if len(s.Unrostered) == 0 {
		rw.printf("  none\n")
	}
	for _, name := range s.Unrostered {
		rw.printf("  - %s\n", name)
	}

	rw.printf("\n%s\nGRADING SUMMARY\n%s\n", rule, rule)
	rw.printf("Total submissions processed: %d\n", s.Total)
	rw.printf("Successful: %d\n", s.Succeeded)
	rw.printf("Failed: %d\n", s.Failed)
	if s.Succeeded > 0 {
		rw.printf("Average grade: %.1f%%\n", s.AverageScore)
	}
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		rw.printf("Duration: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	rw.printf("%s\n", rule)
	return rw.err
}

// reportWriter keeps the first write error.
type reportWriter struct {
	w   io.Writer
	err error
}

func (r *reportWriter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *reportWriter) outcome(o model.GradingOutcome, reason string) {
	if o.Roster == nil {
		r.printf("  - (unknown student)\n    Reason: %s\n", reason)
		return
	}
	r.printf("  - %s (%s)\n    Reason: %s\n", o.Roster.FullName(), o.Roster.Identity.Username, reason)
}
