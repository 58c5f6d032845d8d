package parsing_test

import (
	"errors"
	"testing"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
	"github.com/cryptaliagy/iti1121-grading/internal/domain/parsing"
	. "github.com/smartystreets/goconvey/convey"
)

const gradeLines = `Running tests...
Grade for T1 (out of possible 10): 8
some noise
Grade for T2 (out of possible 5): 4
`

const junitReport = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="ListTest">
    <testcase classname="ListTest" name="testAdd"/>
    <testcase classname="ListTest" name="testRemove"><failure message="expected 2"/></testcase>
  </testsuite>
  <testsuite name="MapTest">
    <testcase classname="MapTest" name="testPut"/>
    <testcase classname="MapTest" name="testGet"><error type="NullPointerException"/></testcase>
  </testsuite>
</testsuites>`

type stubParser struct {
	result model.ScoreFraction
	panics bool
	calls  int
}

func (s *stubParser) Parse(string) model.ScoreFraction {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.result
}

func TestPattern(t *testing.T) {
	Convey("Given the default pattern parser", t, func() {
		p := parsing.NewPattern()

		Convey("When output has two grade lines", func() {
			f := p.Parse(gradeLines)

			Convey("Then the lines are summed", func() {
				So(f, ShouldResemble, model.ScoreFraction{Earned: 12, Possible: 15})
				So(f.Percentage(), ShouldAlmostEqual, 80.0, 1e-9)
			})

			Convey("And each line is itemized by name", func() {
				items := p.Itemize(gradeLines)
				So(items, ShouldHaveLength, 2)
				So(items[0].Name, ShouldEqual, "T1")
				So(items[1].Fraction, ShouldResemble, model.ScoreFraction{Earned: 4, Possible: 5})
			})
		})

		Convey("When lines use the 'a possible' wording and decimals", func() {
			f := p.Parse("Grade for Lab 3 (out of a possible 7.5): 6.25")
			So(f, ShouldResemble, model.ScoreFraction{Earned: 6.25, Possible: 7.5})
		})

		Convey("When nothing matches", func() {
			So(p.Parse("Exception in thread main"), ShouldResemble, model.ScoreFraction{})
			So(p.Parse(""), ShouldResemble, model.ScoreFraction{})
		})
	})

	Convey("Given a custom pattern", t, func() {
		Convey("When it captures max and total", func() {
			p, err := parsing.NewCustomPattern(`(?P<total>\S+)/(?P<max>\S+) points`)
			So(err, ShouldBeNil)

			Convey("Then non-numeric captures are skipped", func() {
				f := p.Parse("3/4 points\nx/4 points\n2/2 points")
				So(f, ShouldResemble, model.ScoreFraction{Earned: 5, Possible: 6})
			})
		})

		Convey("When it lacks the required groups", func() {
			p, err := parsing.NewCustomPattern(`(\d+)/(\d+)`)
			So(err, ShouldBeNil)
			So(p.Parse("3/4"), ShouldResemble, model.ScoreFraction{})
		})

		Convey("When it does not compile", func() {
			_, err := parsing.NewCustomPattern(`(?P<max>`)
			So(errors.Is(err, parsing.ErrInvalidPattern), ShouldBeTrue)
		})
	})
}

func TestJUnitXML(t *testing.T) {
	Convey("Given a JUnit parser", t, func() {
		p := parsing.NewJUnitXML(2)

		Convey("When parsing a testsuites report", func() {
			So(p.Parse(junitReport), ShouldResemble, model.ScoreFraction{Earned: 4, Possible: 8})

			items := p.Itemize(junitReport)
			So(items, ShouldHaveLength, 4)
			So(items[0].Name, ShouldEqual, "ListTest.testAdd")
			So(items[1].Fraction.Earned, ShouldEqual, 0)
		})

		Convey("When parsing a single testsuite", func() {
			out := `<testsuite><testcase name="a"/><testcase name="b"/></testsuite>`
			So(parsing.NewJUnitXML(0).Parse(out), ShouldResemble, model.ScoreFraction{Earned: 2, Possible: 2})
		})

		Convey("When the input is not a report", func() {
			So(p.Parse("<html><body/></html>"), ShouldResemble, model.ScoreFraction{})
			So(p.Parse("<testsuite><testcase"), ShouldResemble, model.ScoreFraction{})
			So(p.Parse(gradeLines), ShouldResemble, model.ScoreFraction{})
		})
	})
}

func TestFunc(t *testing.T) {
	Convey("Given function parsers", t, func() {
		ok := parsing.Func(func(string) (model.ScoreFraction, error) {
			return model.ScoreFraction{Earned: 1, Possible: 2}, nil
		})
		failing := parsing.Func(func(string) (model.ScoreFraction, error) {
			return model.ScoreFraction{Earned: 1, Possible: 2}, errors.New("bad output")
		})
		panicking := parsing.Func(func(string) (model.ScoreFraction, error) {
			panic("boom")
		})

		So(ok.Parse(""), ShouldResemble, model.ScoreFraction{Earned: 1, Possible: 2})
		So(failing.Parse(""), ShouldResemble, model.ScoreFraction{})
		So(panicking.Parse(""), ShouldResemble, model.ScoreFraction{})
	})
}

func TestComposite(t *testing.T) {
	Convey("Given a composite parser", t, func() {
		first := &stubParser{result: model.ScoreFraction{Earned: 3, Possible: 4}}
		second := &stubParser{result: model.ScoreFraction{Earned: 1, Possible: 1}}
		c := parsing.NewComposite(first, second)

		Convey("When the first parser reports possible points", func() {
			So(c.Parse("x"), ShouldResemble, first.result)
			So(second.calls, ShouldEqual, 0)
		})

		Convey("When the first parser finds nothing", func() {
			first.result = model.ScoreFraction{}
			So(c.Parse("x"), ShouldResemble, second.result)
		})

		Convey("When the first parser panics", func() {
			first.panics = true
			So(c.Parse("x"), ShouldResemble, second.result)
		})

		Convey("When no parser recognizes the output", func() {
			first.result, second.result = model.ScoreFraction{}, model.ScoreFraction{}
			So(c.Parse("x"), ShouldResemble, model.ScoreFraction{})
			So(c.Itemize("x"), ShouldBeEmpty)
		})

		Convey("When itemizing through a parser without item support", func() {
			items := c.Itemize("x")
			So(items, ShouldHaveLength, 1)
			So(items[0].Fraction, ShouldResemble, first.result)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given the parser factory", t, func() {
		Convey("When the default composite is built", func() {
			p, err := parsing.New("")
			So(err, ShouldBeNil)

			Convey("Then it reads both pattern and JUnit output", func() {
				So(p.Parse(gradeLines), ShouldResemble, model.ScoreFraction{Earned: 12, Possible: 15})
				So(p.Parse(junitReport), ShouldResemble, model.ScoreFraction{Earned: 2, Possible: 4})
			})
		})

		Convey("When options are supplied", func() {
			p, err := parsing.New("composite", parsing.WithPointsPerTest(5), parsing.WithPattern(`score (?P<total>\d+) of (?P<max>\d+)`))
			So(err, ShouldBeNil)
			So(p.Parse("score 3 of 4"), ShouldResemble, model.ScoreFraction{Earned: 3, Possible: 4})
			So(p.Parse(junitReport), ShouldResemble, model.ScoreFraction{Earned: 10, Possible: 20})
		})

		Convey("When the kind is unknown", func() {
			_, err := parsing.New("tap")
			So(errors.Is(err, parsing.ErrUnknownParser), ShouldBeTrue)
		})

		Convey("When the custom pattern is invalid", func() {
			_, err := parsing.New("pattern", parsing.WithPattern("("))
			So(errors.Is(err, parsing.ErrInvalidPattern), ShouldBeTrue)
		})
	})
}
