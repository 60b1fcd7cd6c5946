package matcher

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
)

// Engine matches normalized messages against keyword lists.
// It is safe for concurrent use; compiled keywords are cached by pattern.
type Engine struct {
	normalizer *Normalizer
	tokenizer  *Tokenizer
	denylist   map[string][]string

	mu    sync.RWMutex
	cache map[string]*compiled
}

type compiled struct {
	normalized    string
	words         []word
	separator     *regexp.Regexp // phrases only: birthday-party, birthday_party
	abbreviations []string       // shorthands whose expansion is this keyword
}

// input is a message analyzed once per Match call
type input struct {
	lowered   string   // raw text, lowercased, marks removed
	canonical []string // canonical fields before abbreviation expansion
	literal   []string // canonical fields without confusable substitution
	fields    []string // normalized fields including stop words
	tokens    []string // normalized fields without stop words
}

// NewEngine creates a matching engine over the given tables
func NewEngine(t Tables) *Engine {
	n := NewNormalizer(t)
	denylist := make(map[string][]string, len(t.Denylist))
	for kw, words := range t.Denylist {
		key := n.Canonical(kw)
		for _, w := range words {
			denylist[key] = append(denylist[key], n.Canonical(w))
		}
	}
	return &Engine{
		normalizer: n,
		tokenizer:  NewTokenizer(t.StopWords),
		denylist:   denylist,
		cache:      make(map[string]*compiled),
	}
}

// Normalize exposes the engine's normalizer
func (e *Engine) Normalize(text string) string {
	return e.normalizer.Normalize(text)
}

// Tokenize normalizes text and returns its filtered tokens
func (e *Engine) Tokenize(text string) []string {
	return e.tokenizer.Tokenize(e.normalizer.Normalize(text))
}

// Prepare fills in the keyword's normalized form and tokens
func (e *Engine) Prepare(k domain.Keyword) domain.Keyword {
	c := e.compile(k.Pattern)
	k.Normalized = c.normalized
	k.Tokens = make([]string, len(c.words))
	for i, w := range c.words {
		k.Tokens[i] = w.text
	}
	return k
}

// Match returns every candidate keyword found in text, at most one match
// per keyword and owner. Empty text yields an empty list.
func (e *Engine) Match(text string, candidates []domain.Keyword) []domain.Match {
	matches := make([]domain.Match, 0)
	if strings.TrimSpace(text) == "" || len(candidates) == 0 {
		return matches
	}

	in := e.analyze(text)
	if len(in.canonical) == 0 {
		return matches
	}

	type owner struct {
		normalized string
		scope      domain.Scope
		userID     string
	}
	seen := make(map[owner]struct{}, len(candidates))

	for _, k := range candidates {
		c := e.compile(k.Pattern)
		if c.normalized == "" {
			continue
		}
		scope := k.Scope
		if scope == "" {
			scope = domain.ScopeGlobal
		}
		key := owner{normalized: c.normalized, scope: scope, userID: k.UserID}
		if _, dup := seen[key]; dup {
			continue
		}

		m, ok := e.matchKeyword(in, c)
		if !ok {
			continue
		}
		seen[key] = struct{}{}
		m.Keyword = k.Pattern
		m.Scope = scope
		m.UserID = k.UserID
		matches = append(matches, m)
	}
	return matches
}

func (e *Engine) analyze(text string) input {
	canonical := e.normalizer.Canonical(text)
	normalized := e.normalizer.Expand(canonical)
	return input{
		lowered:   strings.ToLower(stripMarks(text)),
		canonical: strings.Fields(canonical),
		literal:   strings.Fields(e.normalizer.Literal(text)),
		fields:    e.tokenizer.Fields(normalized),
		tokens:    e.tokenizer.Tokenize(normalized),
	}
}

func (e *Engine) matchKeyword(in input, c *compiled) (domain.Match, bool) {
	for _, short := range c.abbreviations {
		for _, f := range in.canonical {
			if f == short {
				return domain.Match{MatchType: domain.MatchAbbreviation, MatchedToken: f}, true
			}
		}
	}
	if len(c.words) == 1 {
		return e.matchWord(in, c.words[0])
	}
	return e.matchPhrase(in, c)
}

func (e *Engine) matchWord(in input, w word) (domain.Match, bool) {
	search := in.tokens
	if e.tokenizer.IsStopWord(w.text) {
		search = in.fields
	}

	for _, tok := range search {
		if tok == w.text {
			return domain.Match{MatchType: domain.MatchExact, MatchedToken: tok}, true
		}
	}
	for _, tok := range search {
		if fuzzyEqual(tok, w) {
			return domain.Match{MatchType: domain.MatchFuzzy, MatchedToken: tok}, true
		}
	}
	for _, tok := range in.literal {
		if literalSuffix(tok, w) {
			return domain.Match{MatchType: domain.MatchFuzzy, MatchedToken: tok}, true
		}
	}
	return domain.Match{}, false
}

// matchPhrase slides a window over the unfiltered fields so phrases keep
// their stop words, then falls back to separator-joined forms in the raw text.
// The raw text is not confusable-substituted, so b1rthday-party is only
// found by the window, where separators are already spaces.
func (e *Engine) matchPhrase(in input, c *compiled) (domain.Match, bool) {
	n := len(c.words)
	for i := 0; i+n <= len(in.fields); i++ {
		ok := true
		for j, w := range c.words {
			f := in.fields[i+j]
			if f != w.text && !fuzzyEqual(f, w) {
				ok = false
				break
			}
		}
		if ok {
			return domain.Match{
				MatchType:    domain.MatchPhrase,
				MatchedToken: strings.Join(in.fields[i:i+n], " "),
			}, true
		}
	}

	if c.separator != nil {
		if loc := c.separator.FindStringSubmatch(in.lowered); loc != nil {
			return domain.Match{MatchType: domain.MatchPhrase, MatchedToken: loc[1]}, true
		}
	}
	return domain.Match{}, false
}

func (e *Engine) compile(pattern string) *compiled {
	e.mu.RLock()
	c, ok := e.cache[pattern]
	e.mu.RUnlock()
	if ok {
		return c
	}

	c = &compiled{normalized: e.normalizer.Normalize(pattern)}
	for _, f := range strings.Fields(c.normalized) {
		c.words = append(c.words, newWord(f, e.denylist[f]))
	}
	for short, long := range e.normalizer.abbreviations {
		if long == c.normalized && c.normalized != "" {
			c.abbreviations = append(c.abbreviations, short)
		}
	}
	sort.Strings(c.abbreviations)
	if len(c.words) > 1 {
		quoted := make([]string, len(c.words))
		for i, w := range c.words {
			quoted[i] = regexp.QuoteMeta(w.text)
		}
		c.separator = regexp.MustCompile(
			`(?:^|[^\p{L}\p{N}])(` + strings.Join(quoted, `[-_+./]+`) + `)(?:$|[^\p{L}\p{N}])`)
	}

	e.mu.Lock()
	if existing, ok := e.cache[pattern]; ok {
		c = existing
	} else {
		e.cache[pattern] = c
	}
	e.mu.Unlock()
	return c
}
