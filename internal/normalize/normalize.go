// Package normalize canonicalizes free-text field values so that form input
// and reference-profile data can be compared semantically. It folds case,
// strips noise punctuation, and standardizes common address abbreviations so
// that "123 Main Street, Suite 5" and "123 Main St, Ste 5" compare equal.
package normalize

import (
	"regexp"
	"strings"
)

// abbreviations maps full words to their canonical short forms. Both
// directions converge: the full word, the bare abbreviation, and the
// abbreviation with a trailing period all normalize to the same token.
var abbreviations = []struct {
	full   string
	abbrev string
}{
	// Street types
	{"street", "st"},
	{"avenue", "ave"},
	{"boulevard", "blvd"},
	{"road", "rd"},
	{"drive", "dr"},
	{"lane", "ln"},
	{"court", "ct"},
	{"circle", "cir"},
	{"place", "pl"},
	{"square", "sq"},
	{"terrace", "ter"},
	{"parkway", "pkwy"},
	{"highway", "hwy"},

	// Directionals
	{"northeast", "ne"},
	{"northwest", "nw"},
	{"southeast", "se"},
	{"southwest", "sw"},
	{"north", "n"},
	{"south", "s"},
	{"east", "e"},
	{"west", "w"},

	// Building / unit types
	{"suite", "ste"},
	{"apartment", "apt"},
	{"building", "bldg"},
	{"floor", "fl"},
	{"room", "rm"},
	{"unit", "u"},
}

var (
	// Quotes, brackets, braces, semicolons, and colons carry no meaning for
	// comparison. Periods, commas, hyphens, and apostrophes are kept.
	noisePunct = regexp.MustCompile("[\"“”‘’`(){}\\[\\];:]")

	// Two-letter initialisms written with interior periods, e.g. "m.d." and
	// "d.o.", collapse to the bare letters so they match "md" and "do".
	initialism = regexp.MustCompile(`\b([a-z])\.([a-z])\b\.?`)

	multiSpace     = regexp.MustCompile(`\s+`)
	trailingPeriod = regexp.MustCompile(`\.+$`)

	fullWordRe []*regexp.Regexp
	abbrevRe   []*regexp.Regexp
)

func init() {
	for _, a := range abbreviations {
		fullWordRe = append(fullWordRe, regexp.MustCompile(`\b`+a.full+`\b`))
		// The optional trailing period folds "st." into "st".
		abbrevRe = append(abbrevRe, regexp.MustCompile(`\b`+a.abbrev+`\b\.?`))
	}
}

// Normalize returns the canonical comparable form of text. It is pure, total
// (empty input yields the empty string), and idempotent:
// Normalize(Normalize(x)) == Normalize(x) for all x. Idempotence matters
// because callers apply it to both raw and already-normalized values.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := strings.ToLower(strings.TrimSpace(text))
	s = noisePunct.ReplaceAllString(s, "")
	s = initialism.ReplaceAllString(s, "$1$2")

	for i, a := range abbreviations {
		s = fullWordRe[i].ReplaceAllString(s, a.abbrev)
		s = abbrevRe[i].ReplaceAllString(s, a.abbrev)
	}

	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = trailingPeriod.ReplaceAllString(s, "")

	return s
}

// Equal reports whether two raw values are semantically the same field value.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
