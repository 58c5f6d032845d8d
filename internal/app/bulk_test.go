package app_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cryptaliagy/iti1121-grading/internal/adapters/roster"
	"github.com/cryptaliagy/iti1121-grading/internal/adapters/submission"
	"github.com/cryptaliagy/iti1121-grading/internal/app"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type scriptedGrader struct {
	scores map[string]float64
	fail   map[string]model.ErrorKind
	graded []string
	cancel context.CancelFunc
}

func (s *scriptedGrader) Grade(_ context.Context, m model.MatchedSubmission) model.GradingOutcome {
	s.graded = append(s.graded, m.Roster.Identity.Username)
	if s.cancel != nil {
		s.cancel()
	}
	if kind, ok := s.fail[m.Roster.Identity.Username]; ok {
		return model.Fail(m.Roster, kind, "compilation failed")
	}
	return model.Succeed(m.Roster, s.scores[m.Roster.Identity.Username], model.ScoreFraction{}, model.KindNone)
}

const classList = "OrgDefinedId,Username,Last Name,First Name\n" +
	"#1,#asmith,Smith,Alice\n" +
	"#2,#btremblay,Tremblay,Bob\n" +
	"#3,#cwong,Wong,Carol\n" +
	"#4,#dnobody,Nobody,Dan\n"

func batchFixture(t *testing.T) app.Batch {
	t.Helper()
	dir := t.TempDir()
	subs := filepath.Join(dir, "subs")
	for _, folder := range []string{
		"1-1 - Alice Smith - May 17, 2025 0900 AM",
		"1-2 - Alice Smith - May 18, 2025 1224 PM",
		"1-3 - Bob Tremblay - May 18, 2025 100 PM",
		"1-4 - Carol Wong - May 18, 2025 200 PM",
		"1-5 - Zed Zulu - May 18, 2025 300 PM",
		"garbage folder",
	} {
		writeFile(t, filepath.Join(subs, folder, "Lab.java"), "class Lab {}")
	}
	list := filepath.Join(dir, "list.csv")
	writeFile(t, list, classList)
	return app.Batch{RosterPath: list, SubmissionsPath: subs, Assignment: "Lab 3"}
}

func TestBulk_Run(t *testing.T) {
	Convey("Given a batch and a scripted grader", t, func() {
		batch := batchFixture(t)
		g := &scriptedGrader{
			scores: map[string]float64{"asmith": 90, "cwong": 0},
			fail:   map[string]model.ErrorKind{"btremblay": model.KindCompilationFailure},
		}
		b, err := app.NewBulk(app.WithGrader(g), app.WithRunID("run-42"))
		So(err, ShouldBeNil)

		Convey("When the batch is graded", func() {
			res, err := b.Run(context.Background(), batch)
			So(err, ShouldBeNil)
			s := res.Summary

			Convey("Then every matched student is graded once in name order", func() {
				So(g.graded, ShouldResemble, []string{"asmith", "btremblay", "cwong"})
				So(res.Outcomes, ShouldHaveLength, 3)
			})

			Convey("And the summary buckets are filled", func() {
				So(s.RunID, ShouldEqual, "run-42")
				So(s.Assignment, ShouldEqual, "Lab 3")
				So(s.Total, ShouldEqual, 3)
				So(s.Succeeded, ShouldEqual, 2)
				So(s.Failed, ShouldEqual, 1)
				So(s.AverageScore, ShouldAlmostEqual, 45.0, 1e-9)
				So(s.ZeroScore, ShouldHaveLength, 1)
				So(s.ZeroScore[0].Roster.Identity.Username, ShouldEqual, "cwong")
				So(s.FailedOutcomes[0].ErrorKind, ShouldEqual, model.KindCompilationFailure)
				So(s.Unsubmitted, ShouldHaveLength, 1)
				So(s.Unsubmitted[0].Identity.Username, ShouldEqual, "dnobody")
				So(s.Unrostered, ShouldResemble, []string{"Zed Zulu"})
			})

			Convey("And resolution problems are reported as warnings", func() {
				kinds := map[model.ErrorKind]int{}
				for _, w := range res.Warnings {
					kinds[w.Kind]++
				}
				So(kinds[model.KindFormat], ShouldEqual, 1)
				So(kinds[model.KindMatchNotFound], ShouldEqual, 1)
			})

			Convey("And the report and gradebook can be written", func() {
				var report bytes.Buffer
				So(app.WriteReport(&report, s), ShouldBeNil)
				So(report.String(), ShouldContainSubstring, "STUDENTS WHO RECEIVED A GRADE OF 0 (1)")
				So(report.String(), ShouldContainSubstring, "Carol Wong (cwong)")
				So(report.String(), ShouldContainSubstring, "compilation failed (compilation_failure)")
				So(report.String(), ShouldContainSubstring, "Dan Nobody (dnobody)")
				So(report.String(), ShouldContainSubstring, "Zed Zulu")
				So(report.String(), ShouldContainSubstring, "Average grade: 45.0%")

				var csv bytes.Buffer
				So(roster.WriteResults(&csv, res.Roster, res.Outcomes, roster.WriteOptions{AssignmentName: "Lab 3"}), ShouldBeNil)
				So(csv.String(), ShouldContainSubstring, "1,asmith,90.000,#")
				So(csv.String(), ShouldContainSubstring, "4,dnobody,0.000,#")
			})
		})

		Convey("When only one student may be graded", func() {
			batch.GradeOnly = 1
			res, err := b.Run(context.Background(), batch)
			So(err, ShouldBeNil)
			So(g.graded, ShouldResemble, []string{"asmith"})
			So(res.Summary.Total, ShouldEqual, 1)
		})

		Convey("When the run is cancelled mid-batch", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			g.cancel = cancel
			res, err := b.Run(ctx, batch)

			Convey("Then grading stops between students", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(g.graded, ShouldHaveLength, 1)
				So(res.Outcomes, ShouldHaveLength, 1)
			})
		})

		Convey("When the roster cannot be loaded", func() {
			batch.RosterPath = filepath.Join(t.TempDir(), "missing.csv")
			_, err := b.Run(context.Background(), batch)
			So(errors.Is(err, roster.ErrRosterLoad), ShouldBeTrue)
			So(g.graded, ShouldBeEmpty)
		})

		Convey("When the batch archive is corrupt", func() {
			bad := filepath.Join(t.TempDir(), "batch.zip")
			writeFile(t, bad, "nope")
			batch.SubmissionsPath = bad
			_, err := b.Run(context.Background(), batch)
			So(errors.Is(err, submission.ErrArchiveCorrupt), ShouldBeTrue)
			So(g.graded, ShouldBeEmpty)
		})

		Convey("When the batch is incomplete", func() {
			_, err := b.Run(context.Background(), app.Batch{})
			So(errors.Is(err, app.ErrInvalidBatch), ShouldBeTrue)
		})
	})

	Convey("Given no grader", t, func() {
		_, err := app.NewBulk()
		So(errors.Is(err, app.ErrMissingDependency), ShouldBeTrue)
	})
}
