package domain

// Scope describes who a keyword applies to
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopePersonal Scope = "personal"
)

// Keyword is a configured pattern plus its precomputed comparable forms
type Keyword struct {
	Pattern    string
	Scope      Scope
	UserID     string   // Owner, only set for personal keywords
	Normalized string   // Normalized pattern
	Tokens     []string // Normalized token sequence (len > 1 for phrases)
}

// IsPhrase reports whether the keyword spans multiple words
func (k Keyword) IsPhrase() bool {
	return len(k.Tokens) > 1
}

// GlobalKeywords wraps patterns as global keywords
func GlobalKeywords(patterns []string) []Keyword {
	keywords := make([]Keyword, 0, len(patterns))
	for _, p := range patterns {
		keywords = append(keywords, Keyword{Pattern: p, Scope: ScopeGlobal})
	}
	return keywords
}

// PersonalKeywords wraps patterns as personal keywords owned by userID
func PersonalKeywords(userID string, patterns []string) []Keyword {
	keywords := make([]Keyword, 0, len(patterns))
	for _, p := range patterns {
		keywords = append(keywords, Keyword{Pattern: p, Scope: ScopePersonal, UserID: userID})
	}
	return keywords
}

// MatchType describes which rule produced a match
type MatchType string

const (
	MatchExact        MatchType = "exact"
	MatchFuzzy        MatchType = "fuzzy"
	MatchPhrase       MatchType = "phrase"
	MatchAbbreviation MatchType = "abbreviation"
)

// Match is a keyword found in a message
type Match struct {
	Keyword      string    `json:"keyword"`
	MatchType    MatchType `json:"match_type"`
	MatchedToken string    `json:"matched_token"`
	Scope        Scope     `json:"scope"`
	UserID       string    `json:"user_id,omitempty"`
}
