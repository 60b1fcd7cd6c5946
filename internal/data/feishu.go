package data

import (
	"context"
	"sync"
	"time"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/infra/feishu"
)

const chatInfoTTL = 10 * time.Minute

// FeishuClient is the part of the Feishu client the notifier uses
type FeishuClient interface {
	SendText(ctx context.Context, chatID, text string) error
	SendToUser(ctx context.Context, openID, text string) error
	GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error)
	GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error)
}

type cachedChat struct {
	info    *repo.ChatInfo
	fetched time.Time
}

// feishuRepo implements repo.AlertNotifier on Feishu
type feishuRepo struct {
	client FeishuClient

	mu    sync.Mutex
	chats map[string]cachedChat
}

// NewFeishuRepo creates a new Feishu notifier
func NewFeishuRepo(client FeishuClient) repo.AlertNotifier {
	return &feishuRepo{
		client: client,
		chats:  make(map[string]cachedChat),
	}
}

// SendToUser sends a private message
func (r *feishuRepo) SendToUser(ctx context.Context, userID, text string) error {
	return r.client.SendToUser(ctx, userID, text)
}

// SendText sends a text message to a chat
func (r *feishuRepo) SendText(ctx context.Context, chatID, text string) error {
	return r.client.SendText(ctx, chatID, text)
}

// GetChatInfo gets chat info, cached for a few minutes
func (r *feishuRepo) GetChatInfo(ctx context.Context, chatID string) (*repo.ChatInfo, error) {
	r.mu.Lock()
	cached, ok := r.chats[chatID]
	r.mu.Unlock()
	if ok && time.Since(cached.fetched) < chatInfoTTL {
		return cached.info, nil
	}

	raw, err := r.client.GetChatInfo(ctx, chatID)
	if err != nil {
		return nil, err
	}

	chatType := domain.ChatTypeGroup
	if raw.ChatType == string(domain.ChatTypeP2P) {
		chatType = domain.ChatTypeP2P
	}
	info := &repo.ChatInfo{ChatID: chatID, Name: raw.Name, ChatType: chatType}

	r.mu.Lock()
	r.chats[chatID] = cachedChat{info: info, fetched: time.Now()}
	r.mu.Unlock()
	return info, nil
}

// GetChatMembers gets chat member list
func (r *feishuRepo) GetChatMembers(ctx context.Context, chatID string) ([]domain.Member, error) {
	members, err := r.client.GetChatMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Member, 0, len(members))
	for _, m := range members {
		result = append(result, domain.Member{UserID: m.MemberID, Name: m.Name})
	}
	return result, nil
}
