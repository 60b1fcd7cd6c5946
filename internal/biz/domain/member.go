package domain

import "fmt"

// Member represents a chat member (value object)
type Member struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// FormatMention formats the Lark at-mention markup, falling back to the
// plain name when the user id is unknown
func (m *Member) FormatMention() string {
	if m.UserID == "" {
		return m.Name
	}
	name := m.Name
	if name == "" {
		name = m.UserID
	}
	return fmt.Sprintf(`<at user_id="%s">%s</at>`, m.UserID, name)
}

// FormatDisplay formats for display
func (m *Member) FormatDisplay() string {
	return fmt.Sprintf("%s (user_id: %s)", m.Name, m.UserID)
}
