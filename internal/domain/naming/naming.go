// Package naming normalizes free-text student names for comparison.
package naming

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes compatibility forms and drops combining marks.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns an ASCII transliteration of name, lowercased, with
// whitespace runs collapsed to a single space and trimmed. Normalize is
// idempotent.
func Normalize(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	stripped, _, err := transform.String(stripMarks, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(stripped))), " ")
}
