package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// NotifyUsecase is the per-message hot path: resolve the applicable keyword
// set, match the text, filter by ignore list, resolve recipients and fire
// private notifications. It never lets an error escape into the message
// handling path; every failure branch degrades to skipping a recipient or
// the whole message.
type NotifyUsecase struct {
	reminders repo.ReminderRepo
	chat      repo.ChatRepo
	keywords  *KeywordCache
	ignores   *IgnoreCache

	caseInsensitive bool
	now             func() time.Time
}

// NewNotifyUsecase creates the dispatcher. caseInsensitive switches keyword
// matching from exact substring containment to case-folded containment.
func NewNotifyUsecase(
	reminders repo.ReminderRepo,
	chat repo.ChatRepo,
	keywords *KeywordCache,
	ignores *IgnoreCache,
	caseInsensitive bool,
) *NotifyUsecase {
	return &NotifyUsecase{
		reminders:       reminders,
		chat:            chat,
		keywords:        keywords,
		ignores:         ignores,
		caseInsensitive: caseInsensitive,
		now:             time.Now,
	}
}

// candidate collects one owner's matched keywords while grouping store rows.
type candidate struct {
	keywords     map[string]struct{}
	globalSource bool // at least one matching row has global scope
}

// HandleMessage runs the notification protocol for one inbound group
// message. Each step short-circuits at the first no-op condition.
func (uc *NotifyUsecase) HandleMessage(ctx context.Context, msg *domain.IncomingMessage) {
	if msg.GroupID == "" || msg.SenderID == "" {
		return
	}
	// The bot's own traffic and other bots never trigger reminders.
	if msg.SenderID == msg.Bot || msg.SenderIsBot {
		return
	}

	// Ignore gate. An unknown bot entry is ambiguous, so load lazily.
	if !uc.ignores.Known(msg.Bot) {
		_ = uc.ignores.Refresh(ctx, msg.Bot)
	}
	if uc.ignores.IsIgnored(msg.Bot, msg.SenderID) {
		return
	}

	scope := domain.GroupScope(msg.GroupID)
	relevant := unionKeywords(uc.keywords.Lookup(scope), uc.keywords.Lookup(domain.GlobalScope()))
	if len(relevant) == 0 {
		return
	}

	texts := msg.TextSegments()
	if len(texts) == 0 {
		return
	}

	matched := uc.matchKeywords(relevant, texts)
	if len(matched) == 0 {
		return
	}

	rows, err := uc.reminders.List(ctx, repo.ReminderFilter{
		Scopes:       []domain.Scope{scope, domain.GlobalScope()},
		Keywords:     matched,
		Bot:          msg.Bot,
		ExcludeOwner: msg.SenderID,
	})
	if err != nil {
		logger.L.Error("recipient query failed", "group", msg.GroupID, "err", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	candidates := map[string]*candidate{}
	for _, r := range rows {
		c := candidates[r.Owner]
		if c == nil {
			c = &candidate{keywords: map[string]struct{}{}}
			candidates[r.Owner] = c
		}
		c.keywords[r.Keyword] = struct{}{}
		if r.Scope.IsGlobal() {
			c.globalSource = true
		}
	}

	uc.dispatch(ctx, msg, matched, candidates)
}

// dispatch verifies membership for global-sourced candidates and sends the
// notifications, one goroutine per recipient, each failure isolated.
func (uc *NotifyUsecase) dispatch(ctx context.Context, msg *domain.IncomingMessage, matched []string, candidates map[string]*candidate) {
	groupName := msg.GroupID
	if info, err := uc.chat.GetGroupInfo(ctx, msg.GroupID); err == nil && info.Name != "" {
		groupName = info.Name
	}

	senderName := msg.SenderName
	if senderName == "" {
		if name, err := uc.chat.GetUserName(ctx, msg.SenderID); err == nil && name != "" {
			senderName = name
		} else {
			senderName = msg.SenderID
		}
	}

	highlighted := highlightKeywords(msg.CombinedText(), matched)
	timestamp := uc.now().Format("2006-01-02 15:04:05")

	var wg sync.WaitGroup
	for owner, c := range candidates {
		// Global reminders are stored as a single scope-independent
		// marker row, so membership has to be verified now, at dispatch
		// time: a notification must never reach a user who has left the
		// group or was never in it. A scope-specific row is itself proof
		// of intent and needs no check.
		if c.globalSource {
			member, err := uc.chat.GetGroupMember(ctx, msg.GroupID, owner)
			if err != nil {
				logger.L.Warn("membership check failed, skipping recipient",
					"group", msg.GroupID, "user", owner, "err", err)
				continue
			}
			if member == nil {
				logger.L.Debug("global reminder suppressed, user not in group",
					"group", msg.GroupID, "user", owner)
				continue
			}
		}

		keywords := make([]string, 0, len(c.keywords))
		for kw := range c.keywords {
			keywords = append(keywords, kw)
		}
		sort.Strings(keywords)

		text := fmt.Sprintf("%s\nKeyword alert from group [%s] (keywords: %s)\n%s (%s) said:\n%s",
			timestamp, groupName, quoteAll(keywords), senderName, msg.SenderID, highlighted)

		wg.Add(1)
		go func(owner, text string) {
			defer wg.Done()
			if err := uc.chat.SendPrivateMessage(ctx, owner, text); err != nil {
				logger.L.Warn("private notification failed", "user", owner, "err", err)
			}
		}(owner, text)
	}
	wg.Wait()
}

// matchKeywords returns the keywords whose substring occurs in at least one
// literal text segment. Matching never crosses segment boundaries and never
// looks inside placeholder tokens.
func (uc *NotifyUsecase) matchKeywords(keywords, texts []string) []string {
	var matched []string
	for _, kw := range keywords {
		for _, text := range texts {
			if uc.contains(text, kw) {
				matched = append(matched, kw)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched
}

func (uc *NotifyUsecase) contains(text, keyword string) bool {
	if uc.caseInsensitive {
		return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
	}
	return strings.Contains(text, keyword)
}

// highlightKeywords wraps every occurrence of every keyword in 【】 markers.
// Highlighting is deliberately case-insensitive even when matching is not,
// so incidental case variants are visible to the recipient too.
func highlightKeywords(text string, keywords []string) string {
	for _, kw := range keywords {
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(kw))
		if err != nil {
			logger.L.Warn("keyword highlight failed", "keyword", kw, "err", err)
			continue
		}
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return "【" + m + "】"
		})
	}
	return text
}

func unionKeywords(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, kw := range a {
		set[kw] = struct{}{}
	}
	for _, kw := range b {
		set[kw] = struct{}{}
	}
	union := make([]string, 0, len(set))
	for kw := range set {
		union = append(union, kw)
	}
	return union
}

func quoteAll(keywords []string) string {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = `"` + kw + `"`
	}
	return strings.Join(quoted, ", ")
}
