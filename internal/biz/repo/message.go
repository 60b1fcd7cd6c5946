package repo

import (
	"context"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
)

// ChatInfo represents chat information
type ChatInfo struct {
	ChatID   string
	Name     string
	ChatType domain.ChatType
}

// AlertNotifier delivers alerts and replies through the chat platform
type AlertNotifier interface {
	// SendToUser sends a private text message to a user
	SendToUser(ctx context.Context, userID, text string) error

	// SendText sends a text message to a chat
	SendText(ctx context.Context, chatID, text string) error

	// GetChatInfo gets chat information (used to label alerts with the group name)
	GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error)

	// GetChatMembers gets the list of chat members
	GetChatMembers(ctx context.Context, chatID string) ([]domain.Member, error)
}
