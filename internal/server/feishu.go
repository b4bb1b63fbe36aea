package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/feishu-keyword-watch/feishu"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/usecase"
	"github.com/anthropics/feishu-keyword-watch/internal/conf"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
	"github.com/anthropics/feishu-keyword-watch/internal/service"
)

// FeishuServer routes Feishu events: chat commands to the management
// engines, everything else through the notification path.
type FeishuServer struct {
	client      *feishu.Client
	chat        repo.ChatRepo
	notifyUC    *usecase.NotifyUsecase
	reminderUC  *usecase.ReminderUsecase
	ignoreUC    *usecase.IgnoreUsecase
	lifecycleUC *usecase.LifecycleUsecase
	scheduler   *service.ReconcileScheduler
	messages    *conf.MessagesConfig
	prefix      string

	// Message deduplication cache
	seenMsgsMu sync.RWMutex
	seenMsgs   map[string]time.Time
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	client *feishu.Client,
	chat repo.ChatRepo,
	notifyUC *usecase.NotifyUsecase,
	reminderUC *usecase.ReminderUsecase,
	ignoreUC *usecase.IgnoreUsecase,
	lifecycleUC *usecase.LifecycleUsecase,
	scheduler *service.ReconcileScheduler,
	messages *conf.MessagesConfig,
	commandPrefix string,
) *FeishuServer {
	if messages == nil {
		messages = conf.DefaultMessagesConfig()
	}
	return &FeishuServer{
		client:      client,
		chat:        chat,
		notifyUC:    notifyUC,
		reminderUC:  reminderUC,
		ignoreUC:    ignoreUC,
		lifecycleUC: lifecycleUC,
		scheduler:   scheduler,
		messages:    messages,
		prefix:      commandPrefix,
		seenMsgs:    make(map[string]time.Time),
	}
}

// Start registers the event handlers and runs the Feishu client. Blocks
// until Stop or a connection error.
func (s *FeishuServer) Start() error {
	s.client.OnMessage(s.handleMessage)
	s.client.OnMemberDeleted(s.handleMemberDeleted)
	s.client.OnBotDeleted(s.handleBotDeleted)
	s.client.OnReady(s.handleReady)
	return s.client.Start()
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.client.Stop()
}

// handleReady runs the startup synchronization once the client knows its
// own identity. It must not block the event connection from starting.
func (s *FeishuServer) handleReady() {
	go func() {
		ctx := context.Background()
		if err := s.lifecycleUC.OnStart(ctx, []string{s.client.BotID()}); err != nil {
			logger.L.Error("startup synchronization failed", "err", err)
		}
		if s.scheduler != nil {
			if err := s.scheduler.Start(ctx); err != nil {
				logger.L.Error("reconcile scheduler failed to start", "err", err)
			}
		}
	}()
}

// handleMessage dispatches one inbound message.
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	if msg.Sender == nil || msg.Sender.SenderID == "" {
		return
	}
	if s.isMessageSeen(msg.MsgID) {
		logger.L.Debug("duplicate message ignored", "msg_id", msg.MsgID)
		return
	}
	s.markMessageSeen(msg.MsgID)

	ctx := context.Background()
	dmsg := s.toDomainMessage(msg)
	inGroup := msg.ChatType == "group"

	// Private chats are command-only. In groups a command is recognized by
	// its prefix; everything else is watch traffic.
	text := commandText(dmsg)
	switch {
	case !inGroup:
		reply := s.handleCommand(ctx, dmsg, strings.TrimSpace(strings.TrimPrefix(text, s.prefix)), false)
		s.reply(ctx, dmsg, msg.ChatID, false, reply)
	case strings.HasPrefix(text, s.prefix):
		reply := s.handleCommand(ctx, dmsg, strings.TrimSpace(strings.TrimPrefix(text, s.prefix)), true)
		s.reply(ctx, dmsg, msg.ChatID, true, reply)
	default:
		s.notifyUC.HandleMessage(ctx, dmsg)
	}
}

func (s *FeishuServer) handleMemberDeleted(chatID string, userIDs []string) {
	ctx := context.Background()
	bot := s.client.BotID()
	for _, userID := range userIDs {
		s.lifecycleUC.OnMemberRemoved(ctx, bot, chatID, userID)
	}
}

func (s *FeishuServer) handleBotDeleted(chatID string) {
	s.lifecycleUC.OnBotRemovedFromGroup(context.Background(), s.client.BotID(), chatID)
}

// toDomainMessage converts a wire message into the engine's shape.
func (s *FeishuServer) toDomainMessage(msg *feishu.Message) *domain.IncomingMessage {
	groupID := ""
	if msg.ChatType == "group" {
		groupID = msg.ChatID
	}

	dmsg := &domain.IncomingMessage{
		Bot:       s.client.BotID(),
		GroupID:   groupID,
		MessageID: msg.MsgID,
		SenderID:  msg.Sender.SenderID,
		SenderIsBot: msg.Sender.SenderType == "bot" ||
			msg.Sender.SenderType == "app",
		CreatedAt: time.UnixMilli(msg.CreateTime),
	}

	for _, seg := range msg.Segments {
		switch seg.Tag {
		case "text":
			dmsg.Segments = append(dmsg.Segments, domain.Segment{
				Type: domain.SegmentText, Text: seg.Text,
			})
		case "at":
			dmsg.Segments = append(dmsg.Segments, domain.Segment{
				Type: domain.SegmentMention, UserID: seg.UserID, UserName: seg.UserName,
			})
			if seg.UserID != "" && seg.UserID != s.client.BotID() {
				dmsg.Mentions = append(dmsg.Mentions, seg.UserID)
			}
		case "img":
			dmsg.Segments = append(dmsg.Segments, domain.Segment{Type: domain.SegmentImage})
		}
	}
	return dmsg
}

// commandText joins the literal text of a message, the shape command
// parsing works on. Mentions are carried separately.
func commandText(msg *domain.IncomingMessage) string {
	var b strings.Builder
	for _, seg := range msg.Segments {
		if seg.Type == domain.SegmentText {
			b.WriteString(seg.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// reply sends a command response: always privately, falling back to the
// origin group when the private channel is unavailable.
func (s *FeishuServer) reply(ctx context.Context, msg *domain.IncomingMessage, chatID string, inGroup bool, text string) {
	if text == "" {
		return
	}
	if err := s.chat.SendPrivateMessage(ctx, msg.SenderID, text); err != nil {
		logger.L.Warn("private reply failed", "user", msg.SenderID, "err", err)
		if inGroup {
			if err := s.chat.SendGroupMessage(ctx, chatID, text); err != nil {
				logger.L.Error("group fallback reply failed", "group", chatID, "err", err)
			}
		}
	}
}

// isMessageSeen checks if a message has been processed
func (s *FeishuServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.RLock()
	defer s.seenMsgsMu.RUnlock()
	_, exists := s.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed and prunes old records
func (s *FeishuServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()

	cutoff := time.Now().Add(-5 * time.Minute)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}
}
