package usecase

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/matcher"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

// DefaultFallbackKeywords is used when the registry cannot be read
var DefaultFallbackKeywords = []string{"urgent", "emergency", "help", "asap", "important"}

// DetectUsecase resolves candidate keywords for a message and runs the matcher
type DetectUsecase struct {
	registry repo.KeywordRegistry
	engine   atomic.Pointer[matcher.Engine]
	fallback atomic.Pointer[[]string]
	defaults []string
	logger   *zap.Logger
}

// NewDetectUsecase creates a new detect usecase
// defaultRecipients receive global matches in groups nobody subscribed to
func NewDetectUsecase(
	registry repo.KeywordRegistry,
	engine *matcher.Engine,
	fallback []string,
	defaultRecipients []string,
	logger *zap.Logger,
) *DetectUsecase {
	uc := &DetectUsecase{
		registry: registry,
		defaults: defaultRecipients,
		logger:   logger.Named("detect"),
	}
	uc.SetEngine(engine, fallback)
	return uc
}

// SetEngine swaps the matching engine and fallback keywords (config reload)
func (uc *DetectUsecase) SetEngine(engine *matcher.Engine, fallback []string) {
	if len(fallback) == 0 {
		fallback = DefaultFallbackKeywords
	}
	fb := append([]string(nil), fallback...)
	uc.engine.Store(engine)
	uc.fallback.Store(&fb)
}

// Engine returns the current matching engine
func (uc *DetectUsecase) Engine() *matcher.Engine {
	return uc.engine.Load()
}

// DetectKeywords matches text against the global keywords and the personal
// keywords of every subscriber of group. An empty group skips personal keywords.
func (uc *DetectUsecase) DetectKeywords(ctx context.Context, text, group string) []domain.Match {
	if strings.TrimSpace(text) == "" {
		return []domain.Match{}
	}
	return uc.Engine().Match(text, uc.Candidates(ctx, group))
}

// Candidates returns the keywords that apply to a message from group
func (uc *DetectUsecase) Candidates(ctx context.Context, group string) []domain.Keyword {
	global, err := uc.registry.GlobalKeywords(ctx)
	if err != nil {
		uc.logger.Warn("registry_unavailable_using_fallback", zap.Error(err))
		global = *uc.fallback.Load()
	}
	candidates := domain.GlobalKeywords(global)

	if group == "" {
		return candidates
	}

	subscribers, err := uc.registry.Subscribers(ctx, group)
	if err != nil {
		uc.logger.Warn("subscribers_lookup_failed", zap.String("group", group), zap.Error(err))
		return candidates
	}
	for _, userID := range subscribers {
		personal, err := uc.registry.PersonalKeywords(ctx, userID)
		if err != nil {
			uc.logger.Warn("personal_keywords_lookup_failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		candidates = append(candidates, domain.PersonalKeywords(userID, personal)...)
	}
	return candidates
}

// Recipients returns the users a match should alert.
// Personal matches go to their owner; global matches go to the group's
// subscribers, or to the default recipients when there are none.
func (uc *DetectUsecase) Recipients(ctx context.Context, m domain.Match, group string) []string {
	if m.Scope == domain.ScopePersonal {
		return []string{m.UserID}
	}

	var subscribers []string
	if group != "" {
		var err error
		subscribers, err = uc.registry.Subscribers(ctx, group)
		if err != nil {
			uc.logger.Warn("subscribers_lookup_failed", zap.String("group", group), zap.Error(err))
		}
	}
	if len(subscribers) == 0 {
		subscribers = uc.defaults
	}
	return append([]string(nil), subscribers...)
}
