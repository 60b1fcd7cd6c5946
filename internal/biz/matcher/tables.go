package matcher

// Tables holds the static data the normalizer and matcher work from.
// All of it can be overridden from configs/engine.yaml.
type Tables struct {
	// Abbreviations maps a shorthand token to its expansion (asap -> as soon as possible)
	Abbreviations map[string]string
	// Confusables maps look-alike characters to the letter they stand for
	Confusables map[rune]rune
	// StopWords are dropped by the tokenizer (Latin script only)
	StopWords []string
	// Denylist lists known false fuzzy hits per short keyword (help -> held)
	Denylist map[string][]string
}

// DefaultTables returns the built-in tables
func DefaultTables() Tables {
	return Tables{
		Abbreviations: map[string]string{
			"asap":  "as soon as possible",
			"btw":   "by the way",
			"fyi":   "for your information",
			"pls":   "please",
			"plz":   "please",
			"thx":   "thanks",
			"ty":    "thank you",
			"bday":  "birthday",
			"b4":    "before",
			"2day":  "today",
			"2moro": "tomorrow",
			"tmrw":  "tomorrow",
			"msg":   "message",
			"mtg":   "meeting",
			"appt":  "appointment",
			"info":  "information",
			"pic":   "picture",
			"u":     "you",
			"ur":    "your",
			"r":     "are",
			"eta":   "estimated time of arrival",
			"imo":   "in my opinion",
		},
		Confusables: map[rune]rune{
			'@': 'a',
			'$': 's',
			'0': 'o',
			'1': 'i',
			'3': 'e',
			'4': 'a',
			'5': 's',
			'7': 't',
		},
		StopWords: []string{
			"a", "an", "the", "and", "or", "but", "if", "then", "so",
			"is", "are", "was", "were", "be", "been", "am",
			"to", "of", "in", "on", "at", "for", "with", "by", "from", "as",
			"it", "its", "this", "that", "these", "those",
			"i", "you", "he", "she", "we", "they", "me", "my", "your", "our", "their", "his", "her",
			"do", "does", "did", "dont", "just", "very", "really",
		},
		Denylist: map[string][]string{
			"help": {"held", "hell", "helm", "kelp", "yelp", "whelp"},
			"call": {"all", "ball", "cell", "fall", "hall", "mall", "tall", "wall", "cal"},
			"fire": {"fine", "file", "five", "hire", "wire", "fir", "fare"},
			"sick": {"sock", "suck", "sack", "silk", "sink"},
			"lost": {"last", "list", "lust", "most", "post", "cost", "host"},
			"hurt": {"hunt", "hut", "curt"},
			"pain": {"paid", "pin", "main", "rain", "gain", "pan"},
		},
	}
}
