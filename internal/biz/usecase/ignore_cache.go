package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// IgnoreCache mirrors the persisted ignore lists, one entry per connected
// bot. A bot with no entry is "unknown, needs load", which is different
// from a bot that is known to ignore nobody; callers that care use Known
// to trigger a lazy Refresh.
type IgnoreCache struct {
	ignores repo.IgnoreRepo

	mu   sync.RWMutex
	bots map[string]map[string]struct{} // bot -> ignored user set
}

// NewIgnoreCache creates an empty cache.
func NewIgnoreCache(ignores repo.IgnoreRepo) *IgnoreCache {
	return &IgnoreCache{
		ignores: ignores,
		bots:    map[string]map[string]struct{}{},
	}
}

// Refresh reloads one bot's ignore set from the store, replacing any prior
// set atomically. On a store error the set is reset to empty rather than
// left stale; the next lifecycle trigger retries.
func (c *IgnoreCache) Refresh(ctx context.Context, bot string) error {
	entries, err := c.ignores.ListByBot(ctx, bot)
	if err != nil {
		c.mu.Lock()
		c.bots[bot] = map[string]struct{}{}
		c.mu.Unlock()
		logger.L.Error("ignore cache refresh failed", "bot", bot, "err", err)
		return fmt.Errorf("refresh ignore cache for bot %s: %w", bot, err)
	}

	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.IgnoredUser] = struct{}{}
	}

	c.mu.Lock()
	c.bots[bot] = set
	c.mu.Unlock()

	logger.L.Debug("ignore cache refreshed", "bot", bot, "ignored", len(set))
	return nil
}

// RefreshAll refreshes the set of every given bot in parallel. One bot's
// failure never blocks or fails the others; failures are already logged and
// retried on the next lifecycle trigger.
func (c *IgnoreCache) RefreshAll(ctx context.Context, bots []string) {
	var wg sync.WaitGroup
	for _, bot := range bots {
		wg.Add(1)
		go func(bot string) {
			defer wg.Done()
			_ = c.Refresh(ctx, bot)
		}(bot)
	}
	wg.Wait()
}

// Evict removes a bot's entry entirely, used when the bot disconnects.
func (c *IgnoreCache) Evict(bot string) {
	c.mu.Lock()
	delete(c.bots, bot)
	c.mu.Unlock()
}

// Known reports whether the bot's set has been loaded at all.
func (c *IgnoreCache) Known(bot string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bots[bot]
	return ok
}

// IsIgnored reports whether the bot suppresses the user. An unknown bot
// yields false.
func (c *IgnoreCache) IsIgnored(bot, user string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.bots[bot]
	if !ok {
		return false
	}
	_, ignored := set[user]
	return ignored
}

// Ignored returns the sorted ignore list of a bot.
func (c *IgnoreCache) Ignored(bot string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := c.bots[bot]
	users := make([]string, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}
