package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/infra/feishu"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/logger"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/service"
)

const handleTimeout = time.Minute

// MessageSource delivers inbound platform messages
type MessageSource interface {
	OnMessage(handler feishu.MessageHandler)
	Start(ctx context.Context) error
	Stop()
}

// MessageHandler processes converted messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *domain.Message) (*service.AlertResult, error)
}

// FeishuServer feeds Feishu messages into the alert flow
type FeishuServer struct {
	source   MessageSource
	notifier repo.AlertNotifier
	handler  MessageHandler
	logger   *zap.Logger

	ctx context.Context
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(source MessageSource, notifier repo.AlertNotifier, handler MessageHandler, logger *zap.Logger) *FeishuServer {
	return &FeishuServer{
		source:   source,
		notifier: notifier,
		handler:  handler,
		logger:   logger.Named("server"),
		ctx:      context.Background(),
	}
}

// Start registers the handler and blocks while the connection is up
func (s *FeishuServer) Start(ctx context.Context) error {
	s.ctx = ctx
	s.source.OnMessage(s.handleMessage)
	return s.source.Start(ctx)
}

// Stop disconnects from Feishu
func (s *FeishuServer) Stop() {
	s.source.Stop()
}

func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	ctx, cancel := context.WithTimeout(s.ctx, handleTimeout)
	defer cancel()

	dm := s.toDomain(ctx, msg)
	result, err := s.handler.HandleMessage(ctx, dm)
	if err != nil {
		s.logger.Warn("handle_message_failed",
			zap.String("msg_id", msg.MsgID),
			zap.String("chat_id", msg.ChatID),
			zap.Error(err))
	}
	if result == nil || result.Duplicate {
		return
	}
	if len(result.Matches) > 0 || result.Acknowledged {
		s.logger.Info("message_handled",
			zap.String("msg_id", msg.MsgID),
			zap.Int("matches", len(result.Matches)),
			zap.Strings("alerted", result.Alerted),
			zap.Bool("acknowledged", result.Acknowledged))
	}
}

// toDomain converts a Feishu message, resolving group and sender names
// for group chats
func (s *FeishuServer) toDomain(ctx context.Context, msg *feishu.Message) *domain.Message {
	dm := &domain.Message{
		ID:       msg.MsgID,
		ChatID:   msg.ChatID,
		ChatType: domain.ChatTypeP2P,
		Content:  msg.Content,
		SenderID: msg.SenderID,
	}
	if msg.CreateTime > 0 {
		dm.CreateTime = time.UnixMilli(msg.CreateTime)
	}
	if msg.File != nil {
		dm.Attachment = &domain.Attachment{FileKey: msg.File.FileKey, FileName: msg.File.FileName}
	}

	if msg.ChatType != string(domain.ChatTypeGroup) {
		return dm
	}
	dm.ChatType = domain.ChatTypeGroup

	if info, err := s.notifier.GetChatInfo(ctx, msg.ChatID); err == nil && info != nil {
		dm.ChatName = info.Name
	} else if err != nil {
		s.logger.Debug("chat_info_unavailable", zap.String("chat_id", msg.ChatID), zap.Error(err))
	}

	members, err := s.notifier.GetChatMembers(ctx, msg.ChatID)
	if err != nil {
		s.logger.Debug("chat_members_unavailable", zap.String("chat_id", msg.ChatID), zap.Error(err))
		return dm
	}
	for _, m := range members {
		if m.UserID == msg.SenderID {
			dm.SenderName = m.Name
			break
		}
	}

	s.logger.Debug("message_converted",
		zap.String("msg_id", dm.ID),
		zap.String("chat_name", dm.ChatName),
		zap.String("sender", logger.SanitizeUserID(dm.SenderID)))
	return dm
}
