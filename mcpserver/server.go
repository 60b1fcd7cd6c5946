package mcpserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/api"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
)

// Backend is the keywordbot surface the tools operate on.
// *apiclient.Client implements it against a running bot.
type Backend interface {
	GlobalKeywords(ctx context.Context) ([]string, error)
	AddGlobal(ctx context.Context, keyword string) error
	RemoveGlobal(ctx context.Context, keyword string) error
	PersonalKeywords(ctx context.Context, userID string) ([]string, error)
	AddPersonal(ctx context.Context, userID, keyword string) error
	RemovePersonal(ctx context.Context, userID, keyword string) error

	Subscriptions(ctx context.Context) (map[string][]string, error)
	Subscribe(ctx context.Context, groupID, userID string) error
	Unsubscribe(ctx context.Context, groupID, userID string) error

	Detect(ctx context.Context, text, groupID string) ([]domain.Match, error)
	Reminders(ctx context.Context, userID string) ([]api.ReminderView, error)
	Acknowledge(ctx context.Context, userID string) (domain.AckResult, error)
	ChatMembers(ctx context.Context, chatID string) ([]api.Member, error)
}

// KeywordMCPServer exposes keyword administration and reminders as MCP tools
type KeywordMCPServer struct {
	server  *mcp.Server
	backend Backend
}

// NewServer creates a new MCP server
func NewServer(backend Backend, version string) *KeywordMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "keywordbot",
		Version: version,
	}, nil)

	s := &KeywordMCPServer{
		server:  server,
		backend: backend,
	}
	s.registerTools()
	return s
}

// registerTools registers all MCP tools
func (s *KeywordMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "keyword_detect",
		Description: "Run keyword detection on a text as if it was posted in a group. Returns matched keywords with match type (exact, fuzzy, phrase, abbreviation).",
	}, s.handleDetect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "keyword_list",
		Description: "List global keywords, or the personal keywords of a user when user_id is given.",
	}, s.handleListKeywords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "keyword_add",
		Description: "Add a keyword. Without user_id it is global and alerts group subscribers; with user_id it is personal and alerts only that user.",
	}, s.handleAddKeyword)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "keyword_remove",
		Description: "Remove a global keyword, or a personal keyword when user_id is given.",
	}, s.handleRemoveKeyword)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "keyword_subscribe",
		Description: "Subscribe a user to a group so they receive its alerts. Set unsubscribe to remove the subscription.",
	}, s.handleSubscribe)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "keyword_subscriptions",
		Description: "List every group with its subscribed users.",
	}, s.handleSubscriptions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reminder_list",
		Description: "List tracked reminders, optionally for one user.",
	}, s.handleListReminders)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reminder_acknowledge",
		Description: "Acknowledge and stop all pending reminders of a user.",
	}, s.handleAcknowledge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat_members",
		Description: "Get the members of a chat with their ids and mention markup.",
	}, s.handleChatMembers)
}

// Run starts the MCP server with stdio transport
func (s *KeywordMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *KeywordMCPServer) GetServer() *mcp.Server {
	return s.server
}

// DetectInput is the input for keyword_detect
type DetectInput struct {
	Text    string `json:"text" jsonschema:"The message text to check"`
	GroupID string `json:"group_id,omitempty" jsonschema:"Group id whose subscribers' personal keywords apply"`
}

// DetectOutput is the output for keyword_detect
type DetectOutput struct {
	Matches []domain.Match `json:"matches"`
}

func (s *KeywordMCPServer) handleDetect(ctx context.Context, req *mcp.CallToolRequest, input DetectInput) (*mcp.CallToolResult, DetectOutput, error) {
	matches, err := s.backend.Detect(ctx, input.Text, input.GroupID)
	if err != nil {
		return nil, DetectOutput{}, err
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	return nil, DetectOutput{Matches: matches}, nil
}

// KeywordInput is the input for the keyword tools
type KeywordInput struct {
	Keyword string `json:"keyword,omitempty" jsonschema:"The keyword or phrase"`
	UserID  string `json:"user_id,omitempty" jsonschema:"Owner of a personal keyword; empty for global"`
}

// ListKeywordsOutput is the output for keyword_list
type ListKeywordsOutput struct {
	Scope    domain.Scope `json:"scope"`
	UserID   string       `json:"user_id,omitempty"`
	Keywords []string     `json:"keywords"`
}

func (s *KeywordMCPServer) handleListKeywords(ctx context.Context, req *mcp.CallToolRequest, input KeywordInput) (*mcp.CallToolResult, ListKeywordsOutput, error) {
	out := ListKeywordsOutput{Scope: domain.ScopeGlobal}
	var err error
	if input.UserID != "" {
		out.Scope, out.UserID = domain.ScopePersonal, input.UserID
		out.Keywords, err = s.backend.PersonalKeywords(ctx, input.UserID)
	} else {
		out.Keywords, err = s.backend.GlobalKeywords(ctx)
	}
	if err != nil {
		return nil, ListKeywordsOutput{}, err
	}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	return nil, out, nil
}

// ResultOutput reports the outcome of a mutating tool
type ResultOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *KeywordMCPServer) handleAddKeyword(ctx context.Context, req *mcp.CallToolRequest, input KeywordInput) (*mcp.CallToolResult, ResultOutput, error) {
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		return nil, ResultOutput{}, errors.New("keyword is required")
	}

	if input.UserID != "" {
		if err := s.backend.AddPersonal(ctx, input.UserID, keyword); err != nil {
			return nil, ResultOutput{}, err
		}
		return nil, ResultOutput{Success: true, Message: "Personal keyword '" + keyword + "' added for " + input.UserID}, nil
	}
	if err := s.backend.AddGlobal(ctx, keyword); err != nil {
		return nil, ResultOutput{}, err
	}
	return nil, ResultOutput{Success: true, Message: "Global keyword '" + keyword + "' added"}, nil
}

func (s *KeywordMCPServer) handleRemoveKeyword(ctx context.Context, req *mcp.CallToolRequest, input KeywordInput) (*mcp.CallToolResult, ResultOutput, error) {
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		return nil, ResultOutput{}, errors.New("keyword is required")
	}

	var err error
	if input.UserID != "" {
		err = s.backend.RemovePersonal(ctx, input.UserID, keyword)
	} else {
		err = s.backend.RemoveGlobal(ctx, keyword)
	}
	if err != nil {
		return nil, ResultOutput{}, err
	}
	return nil, ResultOutput{Success: true, Message: "Keyword '" + keyword + "' removed"}, nil
}

// SubscribeInput is the input for keyword_subscribe
type SubscribeInput struct {
	GroupID     string `json:"group_id" jsonschema:"The group chat id"`
	UserID      string `json:"user_id" jsonschema:"The user to (un)subscribe"`
	Unsubscribe bool   `json:"unsubscribe,omitempty" jsonschema:"Remove the subscription instead of adding it"`
}

func (s *KeywordMCPServer) handleSubscribe(ctx context.Context, req *mcp.CallToolRequest, input SubscribeInput) (*mcp.CallToolResult, ResultOutput, error) {
	if input.GroupID == "" || input.UserID == "" {
		return nil, ResultOutput{}, errors.New("group_id and user_id are required")
	}

	if input.Unsubscribe {
		if err := s.backend.Unsubscribe(ctx, input.GroupID, input.UserID); err != nil {
			return nil, ResultOutput{}, err
		}
		return nil, ResultOutput{Success: true, Message: input.UserID + " unsubscribed from " + input.GroupID}, nil
	}
	if err := s.backend.Subscribe(ctx, input.GroupID, input.UserID); err != nil {
		return nil, ResultOutput{}, err
	}
	return nil, ResultOutput{Success: true, Message: input.UserID + " subscribed to " + input.GroupID}, nil
}

// SubscriptionsInput is empty - no input needed
type SubscriptionsInput struct{}

// SubscriptionsOutput is the output for keyword_subscriptions
type SubscriptionsOutput struct {
	Subscriptions map[string][]string `json:"subscriptions"`
}

func (s *KeywordMCPServer) handleSubscriptions(ctx context.Context, req *mcp.CallToolRequest, input SubscriptionsInput) (*mcp.CallToolResult, SubscriptionsOutput, error) {
	subs, err := s.backend.Subscriptions(ctx)
	if err != nil {
		return nil, SubscriptionsOutput{}, err
	}
	if subs == nil {
		subs = map[string][]string{}
	}
	return nil, SubscriptionsOutput{Subscriptions: subs}, nil
}

// UserInput selects a user
type UserInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"The user id"`
}

// ReminderItem is one reminder as reported to MCP clients
type ReminderItem struct {
	ReminderID      string `json:"reminder_id"`
	UserID          string `json:"user_id"`
	Keyword         string `json:"keyword"`
	Status          string `json:"status"`
	FirstDetectedAt string `json:"first_detected_at"`
	NextReminderAt  string `json:"next_reminder_at,omitempty"`
	ReminderCount   int    `json:"reminder_count"`
	Group           string `json:"group,omitempty"`
	Sender          string `json:"sender,omitempty"`
	Message         string `json:"message,omitempty"`
}

// RemindersOutput is the output for reminder_list
type RemindersOutput struct {
	Reminders []ReminderItem `json:"reminders"`
}

func (s *KeywordMCPServer) handleListReminders(ctx context.Context, req *mcp.CallToolRequest, input UserInput) (*mcp.CallToolResult, RemindersOutput, error) {
	rs, err := s.backend.Reminders(ctx, input.UserID)
	if err != nil {
		return nil, RemindersOutput{}, err
	}
	items := make([]ReminderItem, 0, len(rs))
	for _, r := range rs {
		items = append(items, toItem(r))
	}
	return nil, RemindersOutput{Reminders: items}, nil
}

func toItem(r api.ReminderView) ReminderItem {
	item := ReminderItem{
		ReminderID:    r.ReminderID,
		UserID:        r.UserID,
		Keyword:       r.Keyword,
		Status:        string(r.Status),
		ReminderCount: r.ReminderCount,
		Group:         r.Payload.Group,
		Sender:        r.Payload.Sender,
		Message:       r.Payload.Message,
	}
	if !r.FirstDetectedAt.IsZero() {
		item.FirstDetectedAt = r.FirstDetectedAt.Format(time.RFC3339)
	}
	if r.Status == domain.StatusActive && !r.NextReminderAt.IsZero() {
		item.NextReminderAt = r.NextReminderAt.Format(time.RFC3339)
	}
	return item
}

func (s *KeywordMCPServer) handleAcknowledge(ctx context.Context, req *mcp.CallToolRequest, input UserInput) (*mcp.CallToolResult, domain.AckResult, error) {
	if input.UserID == "" {
		return nil, domain.AckResult{}, errors.New("user_id is required")
	}
	res, err := s.backend.Acknowledge(ctx, input.UserID)
	if err != nil {
		return nil, domain.AckResult{}, err
	}
	return nil, res, nil
}

// ChatMembersInput selects a chat
type ChatMembersInput struct {
	ChatID string `json:"chat_id" jsonschema:"The chat id"`
}

// ChatMembersOutput contains the list of members
type ChatMembersOutput struct {
	Members []api.Member `json:"members"`
}

func (s *KeywordMCPServer) handleChatMembers(ctx context.Context, req *mcp.CallToolRequest, input ChatMembersInput) (*mcp.CallToolResult, ChatMembersOutput, error) {
	if input.ChatID == "" {
		return nil, ChatMembersOutput{}, errors.New("chat_id is required")
	}
	members, err := s.backend.ChatMembers(ctx, input.ChatID)
	if err != nil {
		return nil, ChatMembersOutput{}, err
	}
	if members == nil {
		members = []api.Member{}
	}
	return nil, ChatMembersOutput{Members: members}, nil
}
