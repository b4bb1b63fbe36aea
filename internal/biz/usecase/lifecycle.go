package usecase

import (
	"context"
	"fmt"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// LifecycleUsecase keeps the caches and the reminder store in step with the
// outside world: process start, bot connect/disconnect, and membership
// changes the bot observes.
type LifecycleUsecase struct {
	reminders repo.ReminderRepo
	keywords  *KeywordCache
	ignores   *IgnoreCache
	chat      repo.ChatRepo
}

// NewLifecycleUsecase creates the synchronizer.
func NewLifecycleUsecase(
	reminders repo.ReminderRepo,
	keywords *KeywordCache,
	ignores *IgnoreCache,
	chat repo.ChatRepo,
) *LifecycleUsecase {
	return &LifecycleUsecase{
		reminders: reminders,
		keywords:  keywords,
		ignores:   ignores,
		chat:      chat,
	}
}

// OnStart runs the full start-of-process synchronization: prune reminders
// whose group the bot can no longer reach, then rebuild both caches.
func (uc *LifecycleUsecase) OnStart(ctx context.Context, bots []string) error {
	logger.L.Info("lifecycle: initial synchronization", "bots", len(bots))

	if err := uc.Reconcile(ctx); err != nil {
		// Stale rows only cost dead cache entries; keep starting up.
		logger.L.Warn("startup reconcile incomplete", "err", err)
	}
	if err := uc.keywords.RebuildAll(ctx); err != nil {
		return err
	}
	uc.ignores.RefreshAll(ctx, bots)

	logger.L.Info("lifecycle: initial synchronization done")
	return nil
}

// OnBotConnect refreshes state for a bot coming online.
func (uc *LifecycleUsecase) OnBotConnect(ctx context.Context, bot string) {
	logger.L.Info("lifecycle: bot connected", "bot", bot)
	if err := uc.keywords.RebuildAll(ctx); err != nil {
		logger.L.Warn("keyword rebuild on connect failed", "bot", bot, "err", err)
	}
	_ = uc.ignores.Refresh(ctx, bot)
}

// OnBotDisconnect drops the bot's ignore entry entirely. The keyword cache
// stays untouched: keywords are not bot-partitioned in the cache, only the
// underlying reminder rows are.
func (uc *LifecycleUsecase) OnBotDisconnect(bot string) {
	logger.L.Info("lifecycle: bot disconnected", "bot", bot)
	uc.ignores.Evict(bot)
}

// Reconcile removes persisted reminders whose scope is a group no connected
// bot belongs to anymore (groups left while the process was down). Global
// rows always survive: global intent is user-level, not group-level.
func (uc *LifecycleUsecase) Reconcile(ctx context.Context) error {
	groups, err := uc.chat.GetGroupList(ctx)
	if err != nil {
		return fmt.Errorf("list reachable groups: %w", err)
	}
	reachable := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		reachable[g.GroupID] = struct{}{}
	}

	scopes, err := uc.reminders.Scopes(ctx)
	if err != nil {
		return fmt.Errorf("list reminder scopes: %w", err)
	}

	var pruned int64
	for _, scope := range scopes {
		if scope.IsGlobal() {
			continue
		}
		if _, ok := reachable[scope.GroupID()]; ok {
			continue
		}
		s := scope
		n, err := uc.reminders.Remove(ctx, repo.ReminderFilter{Scope: &s})
		if err != nil {
			logger.L.Warn("stale scope prune failed", "scope", scope, "err", err)
			continue
		}
		pruned += n
	}
	if pruned > 0 {
		logger.L.Info("pruned reminders for unreachable groups", "rows", pruned)
	}
	return nil
}

// OnMemberRemoved handles a user leaving a group: their scope-specific
// reminders for that group disappear, their global rows survive, and the
// cache is patched with the check-before-evict rule since other owners may
// share the same keywords.
func (uc *LifecycleUsecase) OnMemberRemoved(ctx context.Context, bot, groupID, userID string) {
	scope := domain.GroupScope(groupID)
	rows, err := uc.reminders.List(ctx, repo.ReminderFilter{Scope: &scope, Owner: userID, Bot: bot})
	if err != nil {
		logger.L.Error("member-removed lookup failed", "group", groupID, "user", userID, "err", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	keywords := make([]string, 0, len(rows))
	for _, r := range rows {
		keywords = append(keywords, r.Keyword)
	}

	if _, err := uc.reminders.Remove(ctx, repo.ReminderFilter{Scope: &scope, Owner: userID, Bot: bot}); err != nil {
		logger.L.Error("member-removed prune failed", "group", groupID, "user", userID, "err", err)
		return
	}
	logger.L.Info("removed reminders of departed member", "group", groupID, "user", userID, "rows", len(rows))

	uc.keywords.PatchRemove(ctx, scope, keywords)
}

// OnBotRemovedFromGroup handles the bot itself being removed from a group:
// every reminder scoped to that group goes away, for all owners.
func (uc *LifecycleUsecase) OnBotRemovedFromGroup(ctx context.Context, bot, groupID string) {
	scope := domain.GroupScope(groupID)
	rows, err := uc.reminders.List(ctx, repo.ReminderFilter{Scope: &scope, Bot: bot})
	if err != nil {
		logger.L.Error("bot-removed lookup failed", "group", groupID, "err", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	keywords := make([]string, 0, len(rows))
	for _, r := range rows {
		keywords = append(keywords, r.Keyword)
	}

	if _, err := uc.reminders.Remove(ctx, repo.ReminderFilter{Scope: &scope, Bot: bot}); err != nil {
		logger.L.Error("bot-removed prune failed", "group", groupID, "err", err)
		return
	}
	logger.L.Info("removed reminders for departed group", "group", groupID, "rows", len(rows))

	uc.keywords.PatchRemove(ctx, scope, keywords)
}
