package matcher

import (
	"strings"
	"unicode"
)

const (
	// substringMargin is how many extra characters a token may carry around
	// a keyword it contains (urgentt, helpme)
	substringMargin = 3
	// minSubstringKeyword keeps short keywords out of the substring rule
	minSubstringKeyword = 4
	// shortKeyword keywords this long or shorter only tolerate one edit
	shortKeyword = 4
)

// word is a single compiled keyword token
type word struct {
	text     string
	runes    []rune
	singular string
	numeric  bool
	denied   map[string]struct{}
}

func newWord(text string, denylist []string) word {
	w := word{
		text:     text,
		runes:    []rune(text),
		singular: singular(text),
		numeric:  isNumeric(text),
	}
	if len(denylist) > 0 {
		w.denied = make(map[string]struct{}, len(denylist))
		for _, d := range denylist {
			w.denied[d] = struct{}{}
		}
	}
	return w
}

// threshold returns the edit budget for a keyword of n runes
func threshold(n int) int {
	switch {
	case n < 5:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

// fuzzyEqual reports whether token is an approximate form of w.
// Exact equality is checked by the caller.
func fuzzyEqual(token string, w word) bool {
	if w.numeric {
		return false
	}
	if token == w.text {
		return true
	}
	if w.deniedToken(token) {
		return false
	}

	if singular(token) == w.singular {
		return true
	}

	tr := []rune(token)
	if numericSuffix(tr, w.runes) {
		return true
	}
	if boundedSubstring(token, tr, w) {
		return true
	}

	limit := threshold(len(w.runes))
	if abs(len(tr)-len(w.runes)) > limit {
		return false
	}
	d := EditDistance(token, w.text)
	if d > limit {
		return false
	}
	if d > min(len(tr), len(w.runes))/2 {
		return false
	}
	if len(w.runes) <= shortKeyword && d > 1 {
		return false
	}
	return true
}

// deniedToken reports whether token is a known false hit for a short keyword
func (w word) deniedToken(token string) bool {
	if len(w.runes) > shortKeyword {
		return false
	}
	_, denied := w.denied[token]
	return denied
}

// literalSuffix applies the numeric-suffix rule to a token taken before
// confusable substitution, where urgent1now still reads as urgent + 1 + now
func literalSuffix(token string, w word) bool {
	if w.numeric || token == w.text || w.deniedToken(token) {
		return false
	}
	return numericSuffix([]rune(token), w.runes)
}

// numericSuffix accepts a token that is the keyword followed by digits,
// optionally followed by more characters (urgent123, urgent2nite)
func numericSuffix(token, kw []rune) bool {
	if len(token) <= len(kw) {
		return false
	}
	for i, r := range kw {
		if token[i] != r {
			return false
		}
	}
	return unicode.IsDigit(token[len(kw)])
}

// boundedSubstring accepts a token containing the keyword plus a few extra characters
func boundedSubstring(token string, tr []rune, w word) bool {
	if len(w.runes) < minSubstringKeyword {
		return false
	}
	extra := len(tr) - len(w.runes)
	if extra <= 0 || extra > substringMargin {
		return false
	}
	return strings.Contains(token, w.text)
}

// singular strips a simple English plural ending
func singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "es") && sibilant(w[:len(w)-2]):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

func sibilant(stem string) bool {
	for _, suffix := range []string{"s", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
