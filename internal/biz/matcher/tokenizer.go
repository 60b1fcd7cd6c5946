package matcher

import "strings"

// Tokenizer splits normalized text and drops function words
type Tokenizer struct {
	stopWords map[string]struct{}
}

// NewTokenizer creates a tokenizer with the given stop words
func NewTokenizer(stopWords []string) *Tokenizer {
	t := &Tokenizer{stopWords: make(map[string]struct{}, len(stopWords))}
	for _, w := range stopWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			t.stopWords[w] = struct{}{}
		}
	}
	return t
}

// Fields splits normalized text on whitespace without filtering
func (t *Tokenizer) Fields(normalized string) []string {
	return strings.Fields(normalized)
}

// Tokenize splits normalized text and removes stop words
func (t *Tokenizer) Tokenize(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t.IsStopWord(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// IsStopWord reports whether w is filtered by Tokenize
func (t *Tokenizer) IsStopWord(w string) bool {
	_, ok := t.stopWords[w]
	return ok
}
