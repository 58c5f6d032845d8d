package roster

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

// DefaultGradeMax is the scale of the written grade column.
const DefaultGradeMax = 100.0

// WriteOptions controls the gradebook output.
type WriteOptions struct {
	AssignmentName string
	// GradeMax rescales 0-100 scores; zero means DefaultGradeMax.
	GradeMax float64
	// FailureIsNull leaves the grade empty for failed or missing students
	// instead of writing 0.000.
	FailureIsNull bool
}

// WriteResults writes one row per roster entry, in roster order, with the
// grade of the matching outcome. Name columns are omitted.
func WriteResults(w io.Writer, roster []model.RosterEntry, outcomes []model.GradingOutcome, opts WriteOptions) error {
	if opts.GradeMax <= 0 {
		opts.GradeMax = DefaultGradeMax
	}
	if opts.AssignmentName == "" {
		opts.AssignmentName = "Lab Grade"
	}

	byUser := make(map[string]model.GradingOutcome, len(outcomes))
	for _, o := range outcomes {
		if o.Roster != nil {
			byUser[o.Roster.Identity.Username] = o
		}
	}

	missing := "0.000"
	if opts.FailureIsNull {
		missing = ""
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnOrgID, ColumnUsername, opts.AssignmentName, ColumnEOL}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range roster {
		grade := missing
		if o, ok := byUser[e.Identity.Username]; ok && o.Succeeded {
			if score, ok := o.ScoreValue(); ok {
				grade = fmt.Sprintf("%.3f", score/100*opts.GradeMax)
			}
		}
		if err := cw.Write([]string{e.Identity.OrgID, e.Identity.Username, grade, eolMarker}); err != nil {
			return fmt.Errorf("write row %s: %w", e.Identity.Username, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
