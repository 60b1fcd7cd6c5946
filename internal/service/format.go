package service

import (
	"fmt"
	"strings"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/logger"
)

const previewLimit = 300

// FormatAlert renders the first alert sent to a recipient
func FormatAlert(matches []domain.Match, p domain.Payload, ackHint string) string {
	var sb strings.Builder

	sb.WriteString("🚨 Keyword alert: ")
	for i, m := range matches {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(describeMatch(m))
	}
	sb.WriteString("\n")
	writePayload(&sb, p)
	if ackHint != "" {
		fmt.Fprintf(&sb, "\nReply \"%s\" to stop reminders.", ackHint)
	}
	return sb.String()
}

// FormatReminder renders an escalation of a pending reminder
func FormatReminder(r domain.Reminder, ackHint string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "⏰ Reminder #%d: \"%s\" is still unacknowledged\n", r.FireCount, r.Keyword)
	writePayload(&sb, r.Payload)
	if ackHint != "" {
		fmt.Fprintf(&sb, "\nReply \"%s\" to stop reminders.", ackHint)
	}
	return sb.String()
}

func describeMatch(m domain.Match) string {
	s := fmt.Sprintf("\"%s\"", m.Keyword)
	if m.MatchType != domain.MatchExact && m.MatchedToken != "" {
		s += fmt.Sprintf(" (%s: %s)", m.MatchType, m.MatchedToken)
	}
	if m.Scope == domain.ScopePersonal {
		s += " [personal]"
	}
	return s
}

func writePayload(sb *strings.Builder, p domain.Payload) {
	if p.Group != "" {
		fmt.Fprintf(sb, "Group: %s\n", p.Group)
	}
	sender := domain.Member{UserID: p.SenderID, Name: p.Sender}
	if s := sender.FormatMention(); s != "" {
		fmt.Fprintf(sb, "From: %s\n", s)
	}
	if p.Message != "" {
		fmt.Fprintf(sb, "Message: %s\n", logger.Truncate(p.Message, previewLimit))
	}
	if p.Attachment != nil && p.Attachment.FileName != "" {
		fmt.Fprintf(sb, "Attachment: %s\n", p.Attachment.FileName)
	}
}
