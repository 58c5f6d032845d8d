package model_test

import (
	"testing"
	"time"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIdentity(t *testing.T) {
	Convey("Given raw identity fields from a gradebook export", t, func() {
		id := model.NewIdentity("#300123\t", " #jdoe012\r\n")

		Convey("Then the marker, whitespace and control characters are removed", func() {
			So(id.OrgID, ShouldEqual, "300123")
			So(id.Username, ShouldEqual, "jdoe012")
		})

		Convey("And identities built from equivalent input compare equal", func() {
			So(model.NewIdentity("300123", "jdoe012"), ShouldResemble, id)
		})
	})
}

func TestRosterEntry_FullName(t *testing.T) {
	Convey("Given a roster entry", t, func() {
		e := model.RosterEntry{FirstName: "Alice", LastName: "Smith"}
		So(e.FullName(), ShouldEqual, "Alice Smith")
	})
}

func TestScoreFraction(t *testing.T) {
	Convey("Given score fractions", t, func() {
		Convey("When nothing is possible", func() {
			So(model.ScoreFraction{Earned: 5}.Percentage(), ShouldEqual, 0)
		})

		Convey("When points are possible", func() {
			So(model.ScoreFraction{Earned: 12, Possible: 15}.Percentage(), ShouldAlmostEqual, 80.0, 1e-9)
		})

		Convey("When items are totalled", func() {
			total := model.Total([]model.TestScore{
				{Name: "a", Fraction: model.ScoreFraction{Earned: 8, Possible: 10}},
				{Name: "b", Fraction: model.ScoreFraction{Earned: 4, Possible: 5}},
			})
			So(total, ShouldResemble, model.ScoreFraction{Earned: 12, Possible: 15})
		})
	})
}

func TestGradingOutcome(t *testing.T) {
	Convey("Given a roster entry", t, func() {
		entry := model.RosterEntry{Identity: model.NewIdentity("1", "u1"), FirstName: "A", LastName: "B"}

		Convey("When the submission fails", func() {
			out := model.Fail(entry, model.KindCompilationFailure, "compilation failed")

			Convey("Then no score is present", func() {
				_, ok := out.ScoreValue()
				So(ok, ShouldBeFalse)
				So(out.Score, ShouldBeNil)
				So(out.Succeeded, ShouldBeFalse)
				So(out.Roster.Identity.Username, ShouldEqual, "u1")
			})
		})

		Convey("When the submission succeeds with a zero score", func() {
			out := model.Succeed(entry, 0, model.ScoreFraction{}, model.KindParseDegenerate)

			Convey("Then the zero is an explicit score", func() {
				v, ok := out.ScoreValue()
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 0)
				So(out.Succeeded, ShouldBeTrue)
				So(out.ErrorKind, ShouldEqual, model.KindParseDegenerate)
			})
		})
	})
}

func TestErrorKind(t *testing.T) {
	Convey("Error kinds render their wire names", t, func() {
		So(model.KindNone.String(), ShouldEqual, "none")
		So(model.KindExecutionTimeout.String(), ShouldEqual, "execution_timeout")
	})
}

func TestProcessOutput_DurationSeconds(t *testing.T) {
	Convey("Duration is reported in seconds", t, func() {
		So(model.ProcessOutput{Duration: 1500 * time.Millisecond}.DurationSeconds(), ShouldEqual, 1.5)
	})
}
