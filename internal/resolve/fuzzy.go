// Package resolve maps noisy OCR match and team names onto the clean
// names published by the odds website.
package resolve

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the similarity ratio a pair of names must exceed.
const DefaultThreshold = 0.8

// Initials returns the upper-cased first letter of every whitespace
// separated token, e.g. "Natus Vincere" -> "NV".
func Initials(name string) string {
	var b strings.Builder
	for _, tok := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(tok)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Similarity returns the Ratcliff/Obershelp ratio (2*M/T) of the two
// lower-cased names, computed over runes.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(runes(strings.ToLower(a)), runes(strings.ToLower(b)))
	return m.Ratio()
}

// FuzzyMatch reports whether two team names denote the same team. Equal
// initials win outright; otherwise the similarity ratio must exceed the
// threshold. A non-positive threshold selects DefaultThreshold.
//
// Initials are deliberately coarse: "Natus Vincere" and "Nova Valley"
// match.
func FuzzyMatch(a, b string, threshold float64) bool {
	_, ok := score(a, b, threshold)
	return ok
}

// MatchScore ranks how well two names match: 1 for an initials match,
// the similarity ratio otherwise.
func MatchScore(a, b string) float64 {
	s, _ := score(a, b, DefaultThreshold)
	return s
}

func score(a, b string, threshold float64) (float64, bool) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	ia, ib := Initials(a), Initials(b)
	if ia != "" && ia == ib {
		return 1, true
	}
	s := Similarity(a, b)
	return s, s > threshold
}

func runes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}
