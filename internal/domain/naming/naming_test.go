package naming_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cryptaliagy/iti1121-grading/internal/domain/naming"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given names as they appear in submission folders", t, func() {
		cases := map[string]string{
			"Alice Smith":          "alice smith",
			"  José   Álvarez ":    "jose alvarez",
			"Zoë\tO'Brien":         "zoe o'brien",
			"François Lefèvre":     "francois lefevre",
			"Łukasz Øster":         "lukasz oster",
			"Straße":               "strasse",
			"ＡＢＣ":                  "abc",
			"":                     "",
			" \t\n ":               "",
			"Nguyễn Thị Minh Khai": "nguyen thi minh khai",
			"Иван Петров":          "ivan petrov",
		}
		for in, want := range cases {
			So(naming.Normalize(in), ShouldEqual, want)
		}
	})

	Convey("Names in non-Latin scripts are transliterated to ASCII", t, func() {
		for _, in := range []string{"Иван Петров", "Γιώργος Παπαδόπουλος", "李 小龍", "Søren Kierkegaard", "محمد علي"} {
			out := naming.Normalize(in)
			So(out, ShouldNotBeEmpty)
			for _, r := range out {
				So(int(r), ShouldBeLessThan, utf8.RuneSelf)
			}
		}
	})

	Convey("Normalize is idempotent and produces canonical spacing", t, func() {
		inputs := []string{
			"Alice Smith", "ÉMILE  zola", "  x  ", "Ærøskøbing", "áb", "Mağdalena  Œuvre",
			"​name", "ﬁnance", "ÅSA\t\tLINDGREN", "Иван Петров", "李 小龍",
		}
		for _, in := range inputs {
			once := naming.Normalize(in)
			So(naming.Normalize(once), ShouldEqual, once)
			So(once, ShouldEqual, strings.ToLower(once))
			So(strings.Contains(once, "  "), ShouldBeFalse)
			So(once, ShouldEqual, strings.TrimSpace(once))
		}
	})
}
