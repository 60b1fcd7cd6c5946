package domain

import "time"

// ChatType represents the chat type
type ChatType string

const (
	ChatTypeGroup ChatType = "group"
	ChatTypeP2P   ChatType = "p2p"
)

// Attachment describes a file sent along with a message
type Attachment struct {
	FileKey  string `json:"file_key,omitempty"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// Message represents an inbound chat message
type Message struct {
	ID         string
	ChatID     string
	ChatType   ChatType
	ChatName   string
	Content    string
	SenderID   string
	SenderName string
	Attachment *Attachment
	CreateTime time.Time
}

// IsPrivate reports whether the message was sent in a one-to-one chat
func (m *Message) IsPrivate() bool {
	return m.ChatType == ChatTypeP2P
}

// IsAfter checks if the message is after the specified time
func (m *Message) IsAfter(t time.Time) bool {
	return m.CreateTime.After(t)
}

// SenderDisplay returns the best available sender label
func (m *Message) SenderDisplay() string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderID
}

// Payload builds the reminder payload carried for this message
func (m *Message) Payload() Payload {
	group := m.ChatName
	if group == "" {
		group = m.ChatID
	}
	return Payload{
		Message:    m.Content,
		Sender:     m.SenderDisplay(),
		SenderID:   m.SenderID,
		Group:      group,
		MessageID:  m.ID,
		ChannelID:  m.ChatID,
		Attachment: m.Attachment,
	}
}
