package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkcontact "github.com/larksuite/oapi-sdk-go/v3/service/contact/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// Segment is one structurally distinct piece of a message. Text carries the
// literal content; at and img segments are kept apart so callers can decide
// whether placeholder content takes part in matching.
type Segment struct {
	Tag      string // text, at, img
	Text     string // set for text segments
	UserID   string // set for at segments
	UserName string // set for at segments
}

// Sender identifies who produced a message.
type Sender struct {
	SenderID   string // open_id
	SenderType string // user, bot, app
}

// Message is a received Feishu message, already parsed into segments.
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string // text, post, image
	ChatType   string // p2p, group
	Sender     *Sender
	Segments   []Segment
	Mentions   []string // mentioned open_ids, in order of appearance
	CreateTime int64    // milliseconds Unix timestamp from Feishu
}

// ChatMember is a member of a group chat.
type ChatMember struct {
	MemberID   string
	MemberType string // user, bot
	Name       string
}

// ChatInfo is basic information about a chat.
type ChatInfo struct {
	ChatID string
	Name   string
}

// MessageHandler receives parsed inbound messages.
type MessageHandler func(msg *Message)

// Client is the Feishu API client: one WebSocket event connection plus the
// REST surface the watch engine needs.
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	ctx       context.Context
	cancel    context.CancelFunc
	botOpenID string

	onMessage       MessageHandler
	onMemberDeleted func(chatID string, userIDs []string)
	onBotDeleted    func(chatID string)
	onReady         func()
}

// NewClient creates a new Feishu client.
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
	}
}

// OnMessage sets the handler for inbound messages.
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnMemberDeleted sets the handler for users leaving or being removed from
// a group the bot is in.
func (c *Client) OnMemberDeleted(handler func(chatID string, userIDs []string)) {
	c.onMemberDeleted = handler
}

// OnBotDeleted sets the handler for the bot itself being removed from a
// group.
func (c *Client) OnBotDeleted(handler func(chatID string)) {
	c.onBotDeleted = handler
}

// OnReady sets the handler invoked once the client knows its own identity,
// right before the event connection starts.
func (c *Client) OnReady(handler func()) {
	c.onReady = handler
}

// BotID returns the bot's own open_id. Empty until Start has fetched it.
func (c *Client) BotID() string {
	return c.botOpenID
}

// Start connects to Feishu and listens for events. Blocks until Stop or a
// connection error.
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.larkCli = lark.NewClient(c.appID, c.appSecret)

	if err := c.fetchBotOpenID(); err != nil {
		return fmt.Errorf("fetch bot identity: %w", err)
	}

	// Handlers must return quickly so the SDK can ACK; real work runs in
	// its own goroutine.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		}).
		OnP2ChatMemberUserDeletedV1(func(ctx context.Context, event *larkim.P2ChatMemberUserDeletedV1) error {
			go c.handleMemberDeleted(event)
			return nil
		}).
		OnP2ChatMemberBotDeletedV1(func(ctx context.Context, event *larkim.P2ChatMemberBotDeletedV1) error {
			go c.handleBotDeleted(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	if c.onReady != nil {
		c.onReady()
	}

	logger.L.Info("starting Feishu event connection", "bot", c.botOpenID)
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// fetchBotOpenID resolves the bot's own open_id. The SDK has no wrapper for
// the bot info endpoint, so this goes through the raw API.
func (c *Client) fetchBotOpenID() error {
	tokenReq := fmt.Sprintf(`{"app_id":%q,"app_secret":%q}`, c.appID, c.appSecret)
	tokenResp, err := http.Post(
		"https://open.feishu.cn/open-apis/auth/v3/tenant_access_token/internal",
		"application/json",
		strings.NewReader(tokenReq),
	)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	defer tokenResp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenResult); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://open.feishu.cn/open-apis/bot/v3/info", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResult.TenantAccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return fmt.Errorf("bot info API error: %s", botResult.Msg)
	}

	c.botOpenID = botResult.Bot.OpenID
	logger.L.Info("resolved bot identity", "open_id", c.botOpenID, "name", botResult.Bot.AppName)
	return nil
}

// mentionPlaceholder matches the @_user_N tokens Feishu embeds in text.
var mentionPlaceholder = regexp.MustCompile(`@_user_\d+`)

// handleMessage parses an inbound message event and hands it to the
// registered handler.
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil {
		return
	}

	msg := &Message{
		ChatID:  derefStr(rawMsg.ChatId),
		MsgID:   derefStr(rawMsg.MessageId),
		MsgType: derefStr(rawMsg.MessageType),
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}
	if rawMsg.CreateTime != nil {
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			msg.CreateTime = ts
		}
	}

	if event.Event.Sender != nil {
		msg.Sender = &Sender{}
		if event.Event.Sender.SenderId != nil && event.Event.Sender.SenderId.OpenId != nil {
			msg.Sender.SenderID = *event.Event.Sender.SenderId.OpenId
		}
		if event.Event.Sender.SenderType != nil {
			msg.Sender.SenderType = *event.Event.Sender.SenderType
		}
	}

	// Mention key (@_user_N) to identity mapping, used to carve mention
	// placeholders out of the text.
	mentionByKey := map[string]Segment{}
	for _, mention := range rawMsg.Mentions {
		seg := Segment{Tag: "at"}
		if mention.Id != nil && mention.Id.OpenId != nil {
			seg.UserID = *mention.Id.OpenId
			msg.Mentions = append(msg.Mentions, seg.UserID)
		}
		if mention.Name != nil {
			seg.UserName = *mention.Name
		}
		if mention.Key != nil {
			mentionByKey[*mention.Key] = seg
		}
	}

	content := derefStr(rawMsg.Content)
	switch msg.MsgType {
	case "text":
		msg.Segments = parseTextSegments(content, mentionByKey)
	case "post":
		msg.Segments = parsePostSegments(content, mentionByKey)
	case "image":
		msg.Segments = []Segment{{Tag: "img"}}
	default:
		logger.L.Debug("unsupported message type", "type", msg.MsgType, "chat", msg.ChatID)
		return
	}

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

func (c *Client) handleMemberDeleted(event *larkim.P2ChatMemberUserDeletedV1) {
	if event.Event == nil || event.Event.ChatId == nil || c.onMemberDeleted == nil {
		return
	}
	var userIDs []string
	for _, user := range event.Event.Users {
		if user.UserId != nil && user.UserId.OpenId != nil {
			userIDs = append(userIDs, *user.UserId.OpenId)
		}
	}
	if len(userIDs) == 0 {
		return
	}
	c.onMemberDeleted(*event.Event.ChatId, userIDs)
}

func (c *Client) handleBotDeleted(event *larkim.P2ChatMemberBotDeletedV1) {
	if event.Event == nil || event.Event.ChatId == nil || c.onBotDeleted == nil {
		return
	}
	c.onBotDeleted(*event.Event.ChatId)
}

// parseTextSegments splits a text message into literal text and mention
// segments. Feishu inlines mentions as @_user_N placeholders in the text.
func parseTextSegments(content string, mentionByKey map[string]Segment) []Segment {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}

	text := parsed.Text
	var segments []Segment
	for len(text) > 0 {
		loc := mentionPlaceholder.FindStringIndex(text)
		if loc == nil {
			segments = append(segments, Segment{Tag: "text", Text: text})
			break
		}
		if loc[0] > 0 {
			segments = append(segments, Segment{Tag: "text", Text: text[:loc[0]]})
		}
		key := text[loc[0]:loc[1]]
		if seg, ok := mentionByKey[key]; ok {
			segments = append(segments, seg)
		} else {
			// Placeholder without mention metadata stays literal text.
			segments = append(segments, Segment{Tag: "text", Text: key})
		}
		text = text[loc[1]:]
	}
	return segments
}

// parsePostSegments flattens a rich text (post) message into segments. Lines
// are joined with newline text segments so keyword matching stays within one
// line's literal text.
func parsePostSegments(content string, mentionByKey map[string]Segment) []Segment {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag      string `json:"tag"`
			Text     string `json:"text,omitempty"`
			ImageKey string `json:"image_key,omitempty"`
			UserID   string `json:"user_id,omitempty"`
			UserName string `json:"user_name,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}

	var segments []Segment
	if parsed.Title != "" {
		segments = append(segments, Segment{Tag: "text", Text: parsed.Title + "\n"})
	}
	for i, line := range parsed.Content {
		if i > 0 {
			segments = append(segments, Segment{Tag: "text", Text: "\n"})
		}
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				if elem.Text != "" {
					segments = append(segments, Segment{Tag: "text", Text: elem.Text})
				}
			case "at":
				seg := Segment{Tag: "at", UserID: elem.UserID, UserName: elem.UserName}
				if known, ok := mentionByKey[elem.UserID]; ok {
					seg = known
				}
				segments = append(segments, seg)
			case "img":
				segments = append(segments, Segment{Tag: "img"})
			}
		}
	}
	return segments
}

// SendText sends a text message to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.send(ctx, larkim.ReceiveIdTypeChatId, chatID, text)
}

// SendPrivateText sends a text message directly to a user.
func (c *Client) SendPrivateText(ctx context.Context, openID, text string) error {
	return c.send(ctx, larkim.ReceiveIdTypeOpenId, openID, text)
}

func (c *Client) send(ctx context.Context, receiveIDType, receiveID, text string) error {
	content := map[string]string{"text": text}
	contentJSON, _ := json.Marshal(content)

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}

// GetChatMembers retrieves all members of a group chat, paging as needed.
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			member := &ChatMember{}
			if item.MemberId != nil {
				member.MemberID = *item.MemberId
			}
			if item.MemberIdType != nil {
				member.MemberType = *item.MemberIdType
			}
			if item.Name != nil {
				member.Name = *item.Name
			}
			members = append(members, member)
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return members, nil
}

// GetChatInfo retrieves a chat's display information.
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat info error: %s", resp.Msg)
	}

	info := &ChatInfo{ChatID: chatID}
	if resp.Data.Name != nil {
		info.Name = *resp.Data.Name
	}
	return info, nil
}

// ListChats retrieves every chat the bot is a member of, paging as needed.
func (c *Client) ListChats(ctx context.Context) ([]*ChatInfo, error) {
	var chats []*ChatInfo
	var pageToken string

	for {
		reqBuilder := larkim.NewListChatReqBuilder().
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Chat.List(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("list chats failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("list chats error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			chat := &ChatInfo{}
			if item.ChatId != nil {
				chat.ChatID = *item.ChatId
			}
			if item.Name != nil {
				chat.Name = *item.Name
			}
			chats = append(chats, chat)
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return chats, nil
}

// GetUserName resolves a user's display name from their open_id.
func (c *Client) GetUserName(ctx context.Context, openID string) (string, error) {
	req := larkcontact.NewGetUserReqBuilder().
		UserId(openID).
		UserIdType("open_id").
		Build()

	resp, err := c.larkCli.Contact.User.Get(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get user failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("get user error: %s", resp.Msg)
	}
	if resp.Data.User == nil || resp.Data.User.Name == nil {
		return "", fmt.Errorf("user %s has no name", openID)
	}
	return *resp.Data.User.Name, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
