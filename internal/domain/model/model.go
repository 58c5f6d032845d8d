// Package model contains the grading domain models passed between layers.
package model

import (
	"strings"
	"time"
	"unicode"
)

// ReservedMarker is stripped from identity fields; gradebook exports use it
// as a prefix on usernames and org ids.
const ReservedMarker = '#'

// Identity is the stable key of a roster entry. Construct it with
// NewIdentity so both fields are normalized.
type Identity struct {
	OrgID    string
	Username string
}

// NewIdentity normalizes orgID and username by removing control characters,
// whitespace and the reserved marker.
func NewIdentity(orgID, username string) Identity {
	return Identity{OrgID: cleanIdentityField(orgID), Username: cleanIdentityField(username)}
}

func cleanIdentityField(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ReservedMarker || unicode.IsControl(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// RosterEntry is one enrolled student.
type RosterEntry struct {
	Identity  Identity
	FirstName string
	LastName  string
}

// FullName is used for display and name matching only.
func (r RosterEntry) FullName() string {
	return r.FirstName + " " + r.LastName
}

// SubmissionCandidate is one folder of the incoming batch before matching.
type SubmissionCandidate struct {
	RawName   string
	Timestamp time.Time
	Location  string
}

// MatchedSubmission is the latest submission of one roster student.
type MatchedSubmission struct {
	// NormalizedName is the normalized submission name the match was made from.
	NormalizedName string
	Roster         RosterEntry
	Location       string
	Timestamp      time.Time
}

// ProcessOutput is a snapshot of one toolchain invocation.
type ProcessOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// DurationSeconds returns the wall time of the invocation in seconds.
func (p ProcessOutput) DurationSeconds() float64 {
	return p.Duration.Seconds()
}

// ScoreFraction is points earned out of points possible.
type ScoreFraction struct {
	Earned   float64
	Possible float64
}

// Add returns the component-wise sum.
func (f ScoreFraction) Add(o ScoreFraction) ScoreFraction {
	return ScoreFraction{Earned: f.Earned + o.Earned, Possible: f.Possible + o.Possible}
}

// Percentage is Earned/Possible on a 0-100 scale, 0 when nothing is possible.
func (f ScoreFraction) Percentage() float64 {
	if f.Possible == 0 {
		return 0
	}
	return f.Earned / f.Possible * 100
}

// TestScore is the result of one named test.
type TestScore struct {
	Name     string
	Fraction ScoreFraction
}

// Total sums the fractions of items.
func Total(items []TestScore) ScoreFraction {
	var total ScoreFraction
	for _, it := range items {
		total = total.Add(it.Fraction)
	}
	return total
}

// GradingOutcome is the terminal record for one student.
type GradingOutcome struct {
	Roster *RosterEntry
	// Score is nil whenever Succeeded is false.
	Score     *float64
	Fraction  ScoreFraction
	ErrorKind ErrorKind
	Reason    string
	Succeeded bool
	Duration  time.Duration
}

// Succeed builds a successful outcome. kind may be KindParseDegenerate to
// flag a zero score that came from unparseable output.
func Succeed(roster RosterEntry, score float64, fraction ScoreFraction, kind ErrorKind) GradingOutcome {
	return GradingOutcome{
		Roster:    &roster,
		Score:     &score,
		Fraction:  fraction,
		ErrorKind: kind,
		Succeeded: true,
	}
}

// Fail builds a failed outcome.
func Fail(roster RosterEntry, kind ErrorKind, reason string) GradingOutcome {
	return GradingOutcome{
		Roster:    &roster,
		ErrorKind: kind,
		Reason:    reason,
	}
}

// ScoreValue returns the score and whether one is present.
func (o GradingOutcome) ScoreValue() (float64, bool) {
	if o.Score == nil {
		return 0, false
	}
	return *o.Score, true
}
