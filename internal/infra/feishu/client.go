package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/logger"
)

// Message represents a received Feishu message
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string // text, post, file, image
	ChatType   string // p2p (private), group
	Content    string // Text content extracted from the message
	SenderID   string // open_id of the sender
	SenderType string // user, app
	File       *File  // Set for file messages
	CreateTime int64  // Milliseconds Unix timestamp
}

// File is a file attached to a message
type File struct {
	FileKey  string `json:"file_key"`
	FileName string `json:"file_name"`
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID   string `json:"member_id"`
	MemberType string `json:"member_type"`
	Name       string `json:"name"`
}

// ChatInfo represents information about a chat
type ChatInfo struct {
	ChatID      string `json:"chat_id"`
	Name        string `json:"name"`
	ChatType    string `json:"chat_type"` // p2p, group
	MemberCount int    `json:"user_count"`
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, log *zap.Logger) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		logger:    log.Named("feishu"),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects to Feishu via WebSocket and blocks until ctx is done.
// The SDK reconnects on its own.
func (c *Client) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	// Must return quickly so the SDK can ACK, otherwise Feishu retries the event
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("websocket_starting")
	return c.wsCli.Start(ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event == nil || event.Event == nil {
		return
	}
	msg := ParseEvent(event.Event)
	if msg == nil {
		return
	}

	c.logger.Debug("message_received",
		zap.String("msg_type", msg.MsgType),
		zap.String("chat_type", msg.ChatType),
		zap.String("chat_id", msg.ChatID),
		zap.String("content", logger.Truncate(msg.Content, 50)),
	)

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// ParseEvent converts a receive event into a Message.
// It returns nil for messages sent by apps (including this bot) and for
// unsupported message types.
func ParseEvent(ev *larkim.P2MessageReceiveV1Data) *Message {
	rawMsg := ev.Message
	if rawMsg == nil || rawMsg.ChatId == nil || rawMsg.MessageId == nil || rawMsg.MessageType == nil {
		return nil
	}

	msg := &Message{
		ChatID:   larkcore.StringValue(rawMsg.ChatId),
		MsgID:    larkcore.StringValue(rawMsg.MessageId),
		MsgType:  larkcore.StringValue(rawMsg.MessageType),
		ChatType: larkcore.StringValue(rawMsg.ChatType),
	}
	if ev.Sender != nil {
		msg.SenderType = larkcore.StringValue(ev.Sender.SenderType)
		if ev.Sender.SenderId != nil {
			msg.SenderID = larkcore.StringValue(ev.Sender.SenderId.OpenId)
		}
	}
	// Ignore bot output to avoid alert loops
	if msg.SenderType == "app" {
		return nil
	}
	if ts, err := strconv.ParseInt(larkcore.StringValue(rawMsg.CreateTime), 10, 64); err == nil {
		msg.CreateTime = ts
	}

	mentions := make(map[string]string, len(rawMsg.Mentions))
	for _, m := range rawMsg.Mentions {
		if m.Key != nil && m.Name != nil {
			mentions[*m.Key] = *m.Name
		}
	}
	content := larkcore.StringValue(rawMsg.Content)

	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(content, mentions)
	case "post":
		msg.Content = parsePostContent(content, mentions)
	case "file":
		msg.File = parseFileContent(content)
		if msg.File != nil {
			msg.Content = msg.File.FileName
		}
	case "image":
		msg.Content = "[Image]"
	default:
		return nil
	}
	return msg
}

// parseTextContent extracts text from a text message
// It also replaces mention placeholders (@_user_1) with real names
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent extracts the title and text runs of a rich text message
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var b strings.Builder
		for _, elem := range line {
			switch elem.Tag {
			case "text", "a":
				b.WriteString(elem.Text)
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					b.WriteString("@" + name)
				}
			}
		}
		if b.Len() > 0 {
			lines = append(lines, b.String())
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

func parseFileContent(content string) *File {
	var f File
	if err := json.Unmarshal([]byte(content), &f); err != nil || f.FileKey == "" {
		return nil
	}
	return &f
}

// replaceMentions replaces mention placeholders (@_user_1, @_user_2, etc.) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.send(ctx, larkim.ReceiveIdTypeChatId, chatID, text)
}

// SendToUser sends a private text message to a user by open_id
func (c *Client) SendToUser(ctx context.Context, openID, text string) error {
	return c.send(ctx, larkim.ReceiveIdTypeOpenId, openID, text)
}

func (c *Client) send(ctx context.Context, idType, receiveID, text string) error {
	contentJSON, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(idType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send to %s: %w", receiveID, err)
	}
	if !resp.Success() {
		return fmt.Errorf("send to %s: code %d: %s", receiveID, resp.Code, resp.Msg)
	}

	c.logger.Debug("message_sent", zap.String("receive_id_type", idType), zap.String("receive_id", receiveID))
	return nil
}

// GetChatMembers lists every member of a group, following pagination
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var (
		members   []*ChatMember
		pageToken string
	)
	for {
		b := larkim.NewGetChatMembersReqBuilder().
			ChatId(chatID).
			MemberIdType("open_id").
			PageSize(100)
		if pageToken != "" {
			b = b.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, b.Build())
		if err != nil {
			return nil, fmt.Errorf("list chat members: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("list chat members: code %d: %s", resp.Code, resp.Msg)
		}

		for _, m := range resp.Data.Items {
			members = append(members, &ChatMember{
				MemberID:   larkcore.StringValue(m.MemberId),
				MemberType: larkcore.StringValue(m.MemberIdType),
				Name:       larkcore.StringValue(m.Name),
			})
		}
		if !larkcore.BoolValue(resp.Data.HasMore) || larkcore.StringValue(resp.Data.PageToken) == "" {
			return members, nil
		}
		pageToken = *resp.Data.PageToken
	}
}

// GetChatInfo returns the name and mode of a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	resp, err := c.larkCli.Im.Chat.Get(ctx, larkim.NewGetChatReqBuilder().ChatId(chatID).Build())
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", chatID, err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat %s: code %d: %s", chatID, resp.Code, resp.Msg)
	}

	count, _ := strconv.Atoi(larkcore.StringValue(resp.Data.UserCount))
	return &ChatInfo{
		ChatID:      chatID,
		Name:        larkcore.StringValue(resp.Data.Name),
		ChatType:    larkcore.StringValue(resp.Data.ChatMode),
		MemberCount: count,
	}, nil
}
