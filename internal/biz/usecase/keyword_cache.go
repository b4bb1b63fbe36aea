package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// KeywordCache is the in-memory index the message hot path reads: for each
// scope, the set of keywords that have at least one reminder row, for any
// owner and any bot. It is rebuilt wholesale on lifecycle events and patched
// incrementally after each mutating command. All mutation goes through the
// management engines or the lifecycle synchronizer; nothing else touches it.
type KeywordCache struct {
	reminders repo.ReminderRepo

	mu     sync.RWMutex
	scopes map[string]map[string]struct{} // scope key -> keyword set
}

// NewKeywordCache creates an empty cache. Call RebuildAll before serving.
func NewKeywordCache(reminders repo.ReminderRepo) *KeywordCache {
	return &KeywordCache{
		reminders: reminders,
		scopes:    map[string]map[string]struct{}{},
	}
}

// RebuildAll replaces the whole cache from a full store scan. The global
// scope key is always present afterwards, even when empty. On a store error
// the cache keeps its last-known-good contents.
func (c *KeywordCache) RebuildAll(ctx context.Context) error {
	rows, err := c.reminders.List(ctx, repo.ReminderFilter{})
	if err != nil {
		logger.L.Error("keyword cache rebuild failed", "err", err)
		return fmt.Errorf("rebuild keyword cache: %w", err)
	}

	fresh := map[string]map[string]struct{}{
		domain.GlobalScope().Key(): {},
	}
	for _, r := range rows {
		key := r.Scope.Key()
		if fresh[key] == nil {
			fresh[key] = map[string]struct{}{}
		}
		fresh[key][r.Keyword] = struct{}{}
	}

	c.mu.Lock()
	c.scopes = fresh
	c.mu.Unlock()

	logger.L.Debug("keyword cache rebuilt", "scopes", len(fresh), "rows", len(rows))
	return nil
}

// PatchAdd records a keyword for a scope. Idempotent; creates the scope
// entry when absent.
func (c *KeywordCache) PatchAdd(scope domain.Scope, keyword string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := scope.Key()
	if c.scopes[key] == nil {
		c.scopes[key] = map[string]struct{}{}
	}
	c.scopes[key][keyword] = struct{}{}
}

// PatchRemove reconciles the cache after reminder rows for (scope, keyword)
// tuples were deleted. A keyword is only evicted once the store confirms no
// row with that (scope, keyword) pair remains: the store key includes the
// owner, so one owner's delete must not hide a keyword other owners still
// subscribe to. A scope entry that ends up empty is dropped entirely.
func (c *KeywordCache) PatchRemove(ctx context.Context, scope domain.Scope, keywords []string) {
	if len(keywords) == 0 {
		return
	}

	remaining, err := c.reminders.List(ctx, repo.ReminderFilter{
		Scope:    &scope,
		Keywords: keywords,
	})
	if err != nil {
		// Leave the cache as is; a stale keyword only costs one extra
		// store query at match time, a falsely evicted one loses
		// notifications.
		logger.L.Warn("keyword cache patch skipped", "scope", scope, "err", err)
		return
	}

	stillUsed := map[string]struct{}{}
	for _, r := range remaining {
		stillUsed[r.Keyword] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	set := c.scopes[scope.Key()]
	if set == nil {
		return
	}
	for _, kw := range keywords {
		if _, used := stillUsed[kw]; !used {
			delete(set, kw)
		}
	}
	if len(set) == 0 {
		delete(c.scopes, scope.Key())
	}
}

// Lookup returns a copy of the keyword set for a scope; an absent scope
// yields an empty result, never an error.
func (c *KeywordCache) Lookup(scope domain.Scope) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := c.scopes[scope.Key()]
	if len(set) == 0 {
		return nil
	}
	keywords := make([]string, 0, len(set))
	for kw := range set {
		keywords = append(keywords, kw)
	}
	return keywords
}
