package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/usecase"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/logger"
)

const seenTTL = 5 * time.Minute

// ReminderBook is the part of the scheduler the alert flow drives
type ReminderBook interface {
	Create(ctx context.Context, userID, keyword string, payload domain.Payload) (domain.Reminder, bool, error)
	Acknowledge(ctx context.Context, userID string) (domain.AckResult, error)
}

// AlertResult describes what handling one message did
type AlertResult struct {
	Duplicate    bool
	Acknowledged bool
	Matches      []domain.Match
	Alerted      []string
}

// AlertService turns inbound messages into alerts and reminders
type AlertService struct {
	detect    *usecase.DetectUsecase
	reminders ReminderBook
	notifier  repo.AlertNotifier
	ack       atomic.Pointer[ackCommands]
	logger    *zap.Logger

	seenMu sync.Mutex
	seen   map[string]time.Time
	now    func() time.Time
}

type ackCommands struct {
	set  map[string]struct{}
	hint string
}

// NewAlertService creates an alert service
func NewAlertService(
	detect *usecase.DetectUsecase,
	reminders ReminderBook,
	notifier repo.AlertNotifier,
	ackCommandList []string,
	logger *zap.Logger,
) *AlertService {
	s := &AlertService{
		detect:    detect,
		reminders: reminders,
		notifier:  notifier,
		logger:    logger.Named("alert"),
		seen:      make(map[string]time.Time),
		now:       time.Now,
	}
	s.SetAckCommands(ackCommandList)
	return s
}

// SetAckCommands replaces the acknowledgment commands (config reload)
func (s *AlertService) SetAckCommands(cmds []string) {
	ac := &ackCommands{set: make(map[string]struct{}, len(cmds))}
	for _, c := range cmds {
		c = normalizeCommand(c)
		if c == "" {
			continue
		}
		if ac.hint == "" {
			ac.hint = c
		}
		ac.set[c] = struct{}{}
	}
	s.ack.Store(ac)
}

// IsAckCommand reports whether text is an acknowledgment command
func (s *AlertService) IsAckCommand(text string) bool {
	_, ok := s.ack.Load().set[normalizeCommand(text)]
	return ok
}

func normalizeCommand(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRight(text, "!.? ")
	return strings.Join(strings.Fields(text), " ")
}

// HandleMessage processes one inbound message. Private chats only carry
// acknowledgment commands; group messages are matched against the keywords.
func (s *AlertService) HandleMessage(ctx context.Context, msg *domain.Message) (*AlertResult, error) {
	if msg.ID != "" && s.markSeen(msg.ID) {
		return &AlertResult{Duplicate: true}, nil
	}

	if msg.IsPrivate() {
		return s.handlePrivate(ctx, msg)
	}

	result := &AlertResult{}
	result.Matches = s.detect.DetectKeywords(ctx, detectionText(msg), msg.ChatID)
	if len(result.Matches) == 0 {
		return result, nil
	}

	s.logger.Info("keywords_detected",
		zap.String("msg_id", msg.ID),
		zap.String("chat_id", msg.ChatID),
		zap.String("sender", logger.SanitizeUserID(msg.SenderID)),
		zap.Int("matches", len(result.Matches)))

	payload := msg.Payload()
	var errs []error
	for _, target := range s.targets(ctx, msg, result.Matches) {
		if err := s.alert(ctx, target, payload); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Alerted = append(result.Alerted, target.userID)
	}
	return result, errors.Join(errs...)
}

func (s *AlertService) handlePrivate(ctx context.Context, msg *domain.Message) (*AlertResult, error) {
	if !s.IsAckCommand(msg.Content) {
		return &AlertResult{}, nil
	}

	res, err := s.reminders.Acknowledge(ctx, msg.SenderID)
	if err != nil {
		return nil, fmt.Errorf("acknowledge: %w", err)
	}
	if err := s.notifier.SendText(ctx, msg.ChatID, res.Summary); err != nil {
		s.logger.Warn("ack_reply_failed", zap.String("chat_id", msg.ChatID), zap.Error(err))
	}
	return &AlertResult{Acknowledged: res.HasActive}, nil
}

// alertTarget is one recipient with the matches that concern them
type alertTarget struct {
	userID  string
	matches []domain.Match
}

// targets groups matches by recipient in first-seen order. The sender is
// never alerted about their own message.
func (s *AlertService) targets(ctx context.Context, msg *domain.Message, matches []domain.Match) []alertTarget {
	var targets []alertTarget
	index := make(map[string]int)
	for _, m := range matches {
		for _, userID := range s.detect.Recipients(ctx, m, msg.ChatID) {
			if userID == "" || userID == msg.SenderID {
				continue
			}
			i, ok := index[userID]
			if !ok {
				i = len(targets)
				index[userID] = i
				targets = append(targets, alertTarget{userID: userID})
			}
			targets[i].matches = append(targets[i].matches, m)
		}
	}
	return targets
}

// alert sends the first alert then starts escalation for the first keyword
func (s *AlertService) alert(ctx context.Context, t alertTarget, payload domain.Payload) error {
	text := FormatAlert(t.matches, payload, s.ack.Load().hint)
	if err := s.notifier.SendToUser(ctx, t.userID, text); err != nil {
		s.logger.Warn("alert_send_failed", zap.String("user_id", t.userID), zap.Error(err))
		return fmt.Errorf("alert %s: %w", t.userID, err)
	}

	keyword := t.matches[0].Keyword
	_, created, err := s.reminders.Create(ctx, t.userID, keyword, payload)
	if err != nil {
		return fmt.Errorf("create reminder for %s: %w", t.userID, err)
	}
	if !created {
		s.logger.Debug("reminder_blocked_by_ack",
			zap.String("user_id", t.userID),
			zap.String("keyword", keyword))
	}
	return nil
}

// ReminderDue delivers an escalation to its owner
func (s *AlertService) ReminderDue(ctx context.Context, r domain.Reminder) error {
	return s.notifier.SendToUser(ctx, r.UserID, FormatReminder(r, s.ack.Load().hint))
}

// markSeen records a message id and reports whether it was already seen
func (s *AlertService) markSeen(msgID string) bool {
	now := s.now()

	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	if at, ok := s.seen[msgID]; ok && now.Sub(at) < seenTTL {
		return true
	}
	s.seen[msgID] = now

	for id, at := range s.seen {
		if now.Sub(at) >= seenTTL {
			delete(s.seen, id)
		}
	}
	return false
}

func detectionText(msg *domain.Message) string {
	if msg.Attachment == nil || msg.Attachment.FileName == "" {
		return msg.Content
	}
	if strings.Contains(msg.Content, msg.Attachment.FileName) {
		return msg.Content
	}
	return strings.TrimSpace(msg.Content + " " + msg.Attachment.FileName)
}
