package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/matcher"
)

func newTestDetect(registry *MockKeywordRegistry, defaults []string) *DetectUsecase {
	return NewDetectUsecase(registry, matcher.NewEngine(matcher.DefaultTables()), nil, defaults, zap.NewNop())
}

func TestDetectKeywords_EmptyInput(t *testing.T) {
	uc := newTestDetect(&MockKeywordRegistry{global: []string{"urgent"}}, nil)

	for _, text := range []string{"", "  \n\t"} {
		matches := uc.DetectKeywords(context.Background(), text, "g1")
		if matches == nil || len(matches) != 0 {
			t.Errorf("Expected empty result for %q, got %#v", text, matches)
		}
	}
}

func TestDetectKeywords_PersonalScope(t *testing.T) {
	registry := &MockKeywordRegistry{
		global: []string{"urgent"},
		personal: map[string][]string{
			"alice": {"invoice"},
			"bob":   {"invoice"},
		},
		subscribers: map[string][]string{
			"g1": {"alice"},
		},
	}
	uc := newTestDetect(registry, nil)
	ctx := context.Background()

	matches := uc.DetectKeywords(ctx, "urgent: invoice overdue", "g1")
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %+v", matches)
	}
	if matches[1].Scope != domain.ScopePersonal || matches[1].UserID != "alice" {
		t.Errorf("Expected alice's personal match, got %+v", matches[1])
	}

	// bob is not subscribed to g2, nobody is
	matches = uc.DetectKeywords(ctx, "invoice overdue", "g2")
	if len(matches) != 0 {
		t.Errorf("Expected no personal matches outside subscribed groups, got %+v", matches)
	}
}

func TestDetectKeywords_RegistryFallback(t *testing.T) {
	uc := newTestDetect(&MockKeywordRegistry{err: errRegistryDown}, nil)

	matches := uc.DetectKeywords(context.Background(), "EMERGENCY in room 4", "g1")
	if len(matches) != 1 || matches[0].Keyword != "emergency" {
		t.Errorf("Expected fallback keyword match, got %+v", matches)
	}
}

func TestRecipients(t *testing.T) {
	registry := &MockKeywordRegistry{
		subscribers: map[string][]string{"g1": {"alice", "bob"}},
	}
	uc := newTestDetect(registry, []string{"admin"})
	ctx := context.Background()

	personal := domain.Match{Keyword: "invoice", Scope: domain.ScopePersonal, UserID: "carol"}
	if got := uc.Recipients(ctx, personal, "g1"); len(got) != 1 || got[0] != "carol" {
		t.Errorf("Expected owner only, got %v", got)
	}

	global := domain.Match{Keyword: "urgent", Scope: domain.ScopeGlobal}
	if got := uc.Recipients(ctx, global, "g1"); len(got) != 2 {
		t.Errorf("Expected group subscribers, got %v", got)
	}
	if got := uc.Recipients(ctx, global, "g9"); len(got) != 1 || got[0] != "admin" {
		t.Errorf("Expected default recipients, got %v", got)
	}
}

func TestSetEngine(t *testing.T) {
	uc := newTestDetect(&MockKeywordRegistry{global: []string{"pronto"}}, nil)

	tables := matcher.DefaultTables()
	tables.Abbreviations = map[string]string{"prt": "pronto"}
	uc.SetEngine(matcher.NewEngine(tables), []string{"pronto"})

	matches := uc.DetectKeywords(context.Background(), "prt please", "")
	if len(matches) != 1 || matches[0].MatchType != domain.MatchAbbreviation {
		t.Errorf("Expected abbreviation match from the new engine, got %+v", matches)
	}
}
