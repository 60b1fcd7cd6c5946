package matcher

import "testing"

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultTables())

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"This is URGENT!!", "this is urgent"},
		{"Héllo, WÖRLD! 🔥🔥", "hello world"},
		{"fire🔥alarm", "fire alarm"},
		{"h3lp me", "help me"},
		{"urgent123", "urgent123"},
		{"call 911", "call 911"},
		{"p@$$word", "password"},
		{"birthday-party", "birthday party"},
		{"birthday_party", "birthday party"},
		{"don't   go", "dont go"},
		{"pls help", "please help"},
		{"BTW", "by the way"},
		{"זה דחוף!", "זה דחוף"},
		{"СРОЧНО", "срочно"},
		{"日本語 urgent", "urgent"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := n.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLiteralKeepsDigits(t *testing.T) {
	n := NewNormalizer(DefaultTables())

	tests := []struct {
		in        string
		literal   string
		canonical string
	}{
		{"URGENT1now!", "urgent1now", "urgentinow"},
		{"h3lp me", "h3lp me", "help me"},
		{"birthday-party", "birthday party", "birthday party"},
	}
	for _, tt := range tests {
		if got := n.Literal(tt.in); got != tt.literal {
			t.Errorf("Literal(%q) = %q, want %q", tt.in, got, tt.literal)
		}
		if got := n.Canonical(tt.in); got != tt.canonical {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.canonical)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultTables())

	inputs := []string{
		"This is URGENT!!",
		"h3lp me asap",
		"p@$$ the s@lt",
		"b4 2day, ok?",
		"Crème brûlée 🎂 bday-party",
		"a1b2c3",
		"l0l0l0",
		"@@ $$ @a$",
		"u r late",
		"ΑΒΓ1δ urgent",
	}

	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizerDropsChainedAbbreviations(t *testing.T) {
	tables := Tables{
		Abbreviations: map[string]string{
			"ok":  "okay",
			"kk":  "ok ok",
			"thx": "thanks",
		},
	}
	n := NewNormalizer(tables)

	abbr := n.Abbreviations()
	if _, ok := abbr["kk"]; ok {
		t.Error("Expected kk to be dropped since its expansion contains a shorthand")
	}
	if abbr["thx"] != "thanks" {
		t.Errorf("Expected thx -> thanks, got %q", abbr["thx"])
	}
	if got := n.Normalize(n.Normalize("kk thx")); got != "kk thanks" {
		t.Errorf("Expected 'kk thanks', got %q", got)
	}
}

func TestTokenize(t *testing.T) {
	tok := NewTokenizer(DefaultTables().StopWords)

	tokens := tok.Tokenize("this is the urgent meeting")
	if len(tokens) != 2 || tokens[0] != "urgent" || tokens[1] != "meeting" {
		t.Errorf("Expected [urgent meeting], got %v", tokens)
	}

	if fields := tok.Fields("by the way"); len(fields) != 3 {
		t.Errorf("Expected 3 fields, got %v", fields)
	}
	if len(tok.Tokenize("")) != 0 {
		t.Error("Expected no tokens for empty input")
	}
}
