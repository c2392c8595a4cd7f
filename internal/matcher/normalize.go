package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes diacritical marks so "Ingénieur" matches "Ingenieur".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// abbreviations expands the short forms that show up constantly in HR titles.
var abbreviations = map[string]string{
	"sr":   "senior",
	"jr":   "junior",
	"mgr":  "manager",
	"eng":  "engineer",
	"dev":  "developer",
	"hr":   "human resources",
	"it":   "information technology",
	"vp":   "vice president",
	"dir":  "director",
	"asst": "assistant",
	"spec": "specialist",
	"coord": "coordinator",
}

// fold lowercases, strips accents and punctuation, and collapses whitespace,
// without expanding abbreviations. Two titles that fold equal are literally
// the same title up to casing and punctuation.
func fold(s string) string {
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Normalize folds the string and expands common title abbreviations.
func Normalize(s string) string {
	fields := strings.Fields(fold(s))
	for i, f := range fields {
		if full, ok := abbreviations[f]; ok {
			fields[i] = full
		}
	}
	return strings.Join(fields, " ")
}

// Tokens returns the normalized token set of s.
func Tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(Normalize(s)) {
		set[f] = struct{}{}
	}
	return set
}
