package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/usecase"
	"github.com/anthropics/feishu-keyword-watch/internal/conf"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// handleCommand parses and executes one chat command, returning the reply
// text. Every branch replies with something; silence would read as a dead
// bot.
func (s *FeishuServer) handleCommand(ctx context.Context, msg *domain.IncomingMessage, cmdText string, inGroup bool) string {
	fields := strings.Fields(cmdText)
	if len(fields) == 0 {
		return s.messages.Command.Help
	}

	sub := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(cmdText, sub))

	switch sub {
	case "add":
		return s.cmdAdd(ctx, msg, rest, inGroup)
	case "remove", "rm":
		return s.cmdRemove(ctx, msg, rest, inGroup)
	case "list", "ls":
		return s.cmdList(ctx, msg)
	case "ignore":
		return s.cmdIgnore(ctx, msg, rest)
	case "unignore":
		return s.cmdUnignore(ctx, msg, rest)
	case "ignores":
		return s.cmdIgnores(ctx, msg)
	case "help":
		return s.messages.Command.Help
	default:
		return s.messages.Command.Help
	}
}

// parseScopeArgs splits a keyword argument string into (scope, keywords).
// A -g/--global flag selects the global scope; a trailing oc_ token selects
// an explicit group. Without either the origin group applies; in a private
// chat privateDefaultsGlobal decides between the global scope and an error.
func (s *FeishuServer) parseScopeArgs(msg *domain.IncomingMessage, rest string, inGroup, privateDefaultsGlobal bool) (domain.Scope, []string, string) {
	global := false
	for _, flag := range []string{"--global ", "-g "} {
		if strings.HasPrefix(rest, flag) {
			global = true
			rest = strings.TrimSpace(strings.TrimPrefix(rest, flag))
			break
		}
	}

	explicitGroup := ""
	if fields := strings.Fields(rest); len(fields) > 1 {
		if last := fields[len(fields)-1]; strings.HasPrefix(last, "oc_") {
			explicitGroup = last
			rest = strings.TrimSpace(strings.TrimSuffix(rest, last))
		}
	}

	keywords := domain.ParseKeywords(rest)
	if len(keywords) == 0 {
		return domain.Scope{}, nil, s.messages.Command.Help
	}

	switch {
	case global && explicitGroup != "":
		return domain.Scope{}, nil, "Pick one: -g or a group ID, not both."
	case global:
		return domain.GlobalScope(), keywords, ""
	case explicitGroup != "":
		return domain.GroupScope(explicitGroup), keywords, ""
	case inGroup:
		return domain.GroupScope(msg.GroupID), keywords, ""
	default:
		if privateDefaultsGlobal {
			return domain.GlobalScope(), keywords, ""
		}
		return domain.Scope{}, nil, "In a private chat, use -g or name a group ID (oc_...)."
	}
}

func (s *FeishuServer) cmdAdd(ctx context.Context, msg *domain.IncomingMessage, rest string, inGroup bool) string {
	scope, keywords, errReply := s.parseScopeArgs(msg, rest, inGroup, false)
	if errReply != "" {
		return errReply
	}

	// An explicit group target only works for groups the caller is in;
	// anything else would let users plant watches in chats they left.
	if !scope.IsGlobal() && scope.GroupID() != msg.GroupID {
		member, err := s.chat.GetGroupMember(ctx, scope.GroupID(), msg.SenderID)
		if err != nil {
			logger.L.Warn("membership check for explicit group failed", "group", scope.GroupID(), "err", err)
			return "Could not verify that group, try again later."
		}
		if member == nil {
			return "You can only watch groups you are a member of."
		}
	}

	var created, existed []string
	for _, kw := range keywords {
		result, err := s.reminderUC.Add(ctx, scope, msg.SenderID, kw, msg.Bot)
		if err != nil {
			logger.L.Error("reminder add failed", "keyword", kw, "err", err)
			return "Something went wrong saving that, try again later."
		}
		if result == usecase.AddExisted {
			existed = append(existed, kw)
		} else {
			created = append(created, kw)
		}
	}

	scopeName := s.scopeDisplay(ctx, scope)
	if len(created) == 0 {
		return conf.Format(s.messages.Command.AlreadyExists, map[string]string{
			"keywords": quoteJoin(existed), "scope": scopeName,
		})
	}
	reply := conf.Format(s.messages.Command.Added, map[string]string{
		"keywords": quoteJoin(created), "scope": scopeName,
	})
	if len(existed) > 0 {
		reply += "\n" + conf.Format(s.messages.Command.AlreadyExists, map[string]string{
			"keywords": quoteJoin(existed), "scope": scopeName,
		})
	}
	return reply
}

func (s *FeishuServer) cmdRemove(ctx context.Context, msg *domain.IncomingMessage, rest string, inGroup bool) string {
	// Without a target a private-chat remove falls back to the global scope;
	// there is no origin group to assume.
	scope, keywords, errReply := s.parseScopeArgs(msg, rest, inGroup, true)
	if errReply != "" {
		return errReply
	}

	removed, err := s.reminderUC.Remove(ctx, scope, msg.SenderID, keywords, msg.Bot)
	if err != nil {
		logger.L.Error("reminder remove failed", "err", err)
		return "Something went wrong, try again later."
	}

	scopeName := s.scopeDisplay(ctx, scope)
	if removed == 0 {
		return conf.Format(s.messages.Command.NotFound, map[string]string{
			"keywords": quoteJoin(keywords), "scope": scopeName,
		})
	}
	return conf.Format(s.messages.Command.Removed, map[string]string{
		"keywords": quoteJoin(keywords), "scope": scopeName,
	})
}

func (s *FeishuServer) cmdList(ctx context.Context, msg *domain.IncomingMessage) string {
	overviews, err := s.reminderUC.List(ctx, msg.SenderID, msg.Bot)
	if err != nil {
		logger.L.Error("reminder list failed", "err", err)
		return "Something went wrong, try again later."
	}
	if len(overviews) == 0 {
		return s.messages.Command.ListEmpty
	}

	var b strings.Builder
	b.WriteString(s.messages.Command.ListHeader)
	for _, ov := range overviews {
		b.WriteString(fmt.Sprintf("\n- %q: ", ov.Keyword))
		var where []string
		if ov.Global {
			where = append(where, "all shared groups")
		}
		for _, groupID := range ov.Groups {
			where = append(where, s.groupDisplay(ctx, groupID))
		}
		b.WriteString(strings.Join(where, ", "))
	}
	return b.String()
}

func (s *FeishuServer) cmdIgnore(ctx context.Context, msg *domain.IncomingMessage, rest string) string {
	userID, reply := s.resolveIgnoreTarget(msg, rest)
	if reply != "" {
		return reply
	}

	added, err := s.ignoreUC.Add(ctx, msg.Bot, userID)
	if err != nil {
		logger.L.Error("ignore add failed", "user", userID, "err", err)
		return "Something went wrong, try again later."
	}

	display := s.userDisplay(ctx, userID)
	if !added {
		return conf.Format(s.messages.Command.AlreadyIgnored, map[string]string{"user": display})
	}
	return conf.Format(s.messages.Command.Ignored, map[string]string{"user": display})
}

func (s *FeishuServer) cmdUnignore(ctx context.Context, msg *domain.IncomingMessage, rest string) string {
	userID, reply := s.resolveIgnoreTarget(msg, rest)
	if reply != "" {
		return reply
	}

	removed, err := s.ignoreUC.Remove(ctx, msg.Bot, userID)
	if err != nil {
		logger.L.Error("ignore remove failed", "user", userID, "err", err)
		return "Something went wrong, try again later."
	}

	display := s.userDisplay(ctx, userID)
	if !removed {
		return conf.Format(s.messages.Command.NotIgnored, map[string]string{"user": display})
	}
	return conf.Format(s.messages.Command.Unignored, map[string]string{"user": display})
}

func (s *FeishuServer) cmdIgnores(ctx context.Context, msg *domain.IncomingMessage) string {
	users, err := s.ignoreUC.List(ctx, msg.Bot)
	if err != nil {
		logger.L.Error("ignore list failed", "err", err)
		return "Something went wrong, try again later."
	}
	if len(users) == 0 {
		return s.messages.Command.IgnoreEmpty
	}

	var b strings.Builder
	b.WriteString("Ignored users:")
	for _, userID := range users {
		b.WriteString("\n- " + s.userDisplay(ctx, userID))
	}
	return b.String()
}

// resolveIgnoreTarget turns a mention or raw reference into a user ID,
// rejecting the caller and the bot itself.
func (s *FeishuServer) resolveIgnoreTarget(msg *domain.IncomingMessage, rest string) (string, string) {
	userID, ok := domain.ResolveUserRef(msg.Mentions, rest)
	if !ok {
		return "", "Name a user by @mention or their ID."
	}
	if userID == msg.SenderID {
		return "", "You cannot ignore yourself."
	}
	if userID == msg.Bot {
		return "", "The bot cannot ignore itself."
	}
	return userID, ""
}

func (s *FeishuServer) scopeDisplay(ctx context.Context, scope domain.Scope) string {
	if scope.IsGlobal() {
		return "all shared groups"
	}
	return s.groupDisplay(ctx, scope.GroupID())
}

func (s *FeishuServer) groupDisplay(ctx context.Context, groupID string) string {
	if info, err := s.chat.GetGroupInfo(ctx, groupID); err == nil && info.Name != "" {
		return info.Name
	}
	return groupID
}

func (s *FeishuServer) userDisplay(ctx context.Context, userID string) string {
	if name, err := s.chat.GetUserName(ctx, userID); err == nil && name != "" {
		return name
	}
	return userID
}

func quoteJoin(keywords []string) string {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = fmt.Sprintf("%q", kw)
	}
	return strings.Join(quoted, ", ")
}
