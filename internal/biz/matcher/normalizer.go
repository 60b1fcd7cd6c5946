package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes raw text into a comparable form.
// Normalize is pure and idempotent; a Normalizer is safe for concurrent use.
type Normalizer struct {
	confusables   map[rune]rune
	abbreviations map[string]string
}

// NewNormalizer builds a normalizer from the given tables
func NewNormalizer(t Tables) *Normalizer {
	n := &Normalizer{
		confusables:   make(map[rune]rune, len(t.Confusables)),
		abbreviations: make(map[string]string, len(t.Abbreviations)),
	}
	for from, to := range t.Confusables {
		n.confusables[from] = unicode.ToLower(to)
	}

	for short, long := range t.Abbreviations {
		key := n.Canonical(short)
		expansion := n.Canonical(long)
		if key == "" || expansion == "" || strings.Contains(key, " ") {
			continue
		}
		n.abbreviations[key] = expansion
	}
	// An expansion containing another shorthand would expand again on a
	// second pass and break idempotency.
	for key, expansion := range n.abbreviations {
		for _, word := range strings.Fields(expansion) {
			if _, ok := n.abbreviations[word]; ok {
				delete(n.abbreviations, key)
				break
			}
		}
	}
	return n
}

// Normalize runs the full pipeline including abbreviation expansion
func (n *Normalizer) Normalize(text string) string {
	return n.Expand(n.Canonical(text))
}

// Canonical runs every normalization step except abbreviation expansion
func (n *Normalizer) Canonical(text string) string {
	return n.canonical(text, true)
}

// Literal is Canonical without confusable substitution, so digits keep
// their value (urgent1now stays urgent1now)
func (n *Normalizer) Literal(text string) string {
	return n.canonical(text, false)
}

func (n *Normalizer) canonical(text string, confusables bool) string {
	if text == "" {
		return ""
	}
	s := stripEmoji(text)
	s = stripMarks(s)
	s = strings.ToLower(s)
	s = replaceSeparators(s)
	if confusables {
		s = n.substituteConfusables(s)
	}
	s = keepScripts(s)
	return strings.Join(strings.Fields(s), " ")
}

// Expand replaces known abbreviations token by token in canonical text
func (n *Normalizer) Expand(canonical string) string {
	fields := strings.Fields(canonical)
	for i, f := range fields {
		if expansion, ok := n.abbreviations[f]; ok {
			fields[i] = expansion
		}
	}
	return strings.Join(fields, " ")
}

// Abbreviations returns the canonical abbreviation table
func (n *Normalizer) Abbreviations() map[string]string {
	out := make(map[string]string, len(n.abbreviations))
	for k, v := range n.abbreviations {
		out[k] = v
	}
	return out
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, flags
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2300 && r <= 0x23FF, r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D, r == 0x20E3:
		return true
	case r >= 0xE0020 && r <= 0xE007F: // tag sequences
		return true
	}
	return false
}

// stripEmoji replaces pictographic runes with a space so adjacent words stay apart
func stripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return ' '
		}
		return r
	}, s)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func replaceSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '+':
			return ' '
		case '\'', '’', '‘', '`':
			return -1
		}
		return r
	}, s)
}

// substituteConfusables swaps look-alike characters for letters. Digits are
// only swapped inside a word (letters on both sides) so codes like 911 or
// suffixes like urgent123 survive. Runs to a fixpoint since each swap can
// turn a neighbour into a letter.
func (n *Normalizer) substituteConfusables(s string) string {
	if len(n.confusables) == 0 {
		return s
	}
	rs := []rune(s)
	for changed := true; changed; {
		changed = false
		for i, r := range rs {
			to, ok := n.confusables[r]
			if !ok {
				continue
			}
			prev := i > 0 && unicode.IsLetter(rs[i-1])
			next := i+1 < len(rs) && unicode.IsLetter(rs[i+1])

			if unicode.IsDigit(r) {
				if !prev || !next {
					continue
				}
			} else if !prev && !next {
				continue
			}
			rs[i] = to
			changed = true
		}
	}
	return string(rs)
}

var allowedScripts = []*unicode.RangeTable{unicode.Latin, unicode.Hebrew, unicode.Cyrillic, unicode.Arabic}

func keepScripts(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		if unicode.IsLetter(r) && unicode.In(r, allowedScripts...) {
			return r
		}
		return ' '
	}, s)
}
