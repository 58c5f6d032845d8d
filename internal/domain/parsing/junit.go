package parsing

import (
	"encoding/xml"
	"strings"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/model"
)

type junitNode struct {
	XMLName xml.Name
	Cases   []junitCase `xml:"testcase"`
	Suites  []junitNode `xml:"testsuite"`
}

type junitCase struct {
	Name      string    `xml:"name,attr"`
	Classname string    `xml:"classname,attr"`
	Failure   *struct{} `xml:"failure"`
	Error     *struct{} `xml:"error"`
}

// JUnitXML scores a JUnit style report rooted at testsuite or testsuites.
type JUnitXML struct {
	PointsPerTest float64
}

// NewJUnitXML returns a JUnit parser awarding pointsPerTest per test case.
func NewJUnitXML(pointsPerTest float64) *JUnitXML {
	if pointsPerTest <= 0 {
		pointsPerTest = DefaultPointsPerTest
	}
	return &JUnitXML{PointsPerTest: pointsPerTest}
}

// Parse implements Parser.
func (j *JUnitXML) Parse(output string) model.ScoreFraction {
	return model.Total(j.Itemize(output))
}

// Itemize implements Itemizer.
func (j *JUnitXML) Itemize(output string) []model.TestScore {
	var root junitNode
	if err := xml.Unmarshal([]byte(strings.TrimSpace(output)), &root); err != nil {
		return nil
	}
	if root.XMLName.Local != "testsuite" && root.XMLName.Local != "testsuites" {
		return nil
	}
	var items []model.TestScore
	j.collect(root, &items)
	return items
}

func (j *JUnitXML) collect(node junitNode, items *[]model.TestScore) {
	for _, c := range node.Cases {
		f := model.ScoreFraction{Possible: j.PointsPerTest}
		if c.Failure == nil && c.Error == nil {
			f.Earned = j.PointsPerTest
		}
		name := c.Name
		if c.Classname != "" {
			name = c.Classname + "." + c.Name
		}
		*items = append(*items, model.TestScore{Name: name, Fraction: f})
	}
	for _, s := range node.Suites {
		j.collect(s, items)
	}
}
