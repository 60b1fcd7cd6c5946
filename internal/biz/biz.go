package biz

import (
	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/matcher"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Detect   *usecase.DetectUsecase
	Reminder *usecase.ReminderUsecase
}

// Options configures the usecases
type Options struct {
	Engine            *matcher.Engine
	FallbackKeywords  []string
	DefaultRecipients []string
	Reminder          usecase.ReminderConfig
}

// NewUsecases wires the usecases over the repositories
func NewUsecases(registry repo.KeywordRegistry, reminders repo.ReminderRepo, opts Options, logger *zap.Logger) *Usecases {
	engine := opts.Engine
	if engine == nil {
		engine = matcher.NewEngine(matcher.DefaultTables())
	}
	return &Usecases{
		Detect:   usecase.NewDetectUsecase(registry, engine, opts.FallbackKeywords, opts.DefaultRecipients, logger),
		Reminder: usecase.NewReminderUsecase(reminders, opts.Reminder),
	}
}
