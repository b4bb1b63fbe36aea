package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// IgnoreUsecase manages a bot's ignore list. Every successful write is
// followed by a synchronous cache refresh so the cache never lags a write
// that is visible to the command's own response.
type IgnoreUsecase struct {
	ignores repo.IgnoreRepo
	cache   *IgnoreCache
}

// NewIgnoreUsecase creates the ignore management engine.
func NewIgnoreUsecase(ignores repo.IgnoreRepo, cache *IgnoreCache) *IgnoreUsecase {
	return &IgnoreUsecase{ignores: ignores, cache: cache}
}

// Add puts a user on the bot's ignore list. Returns false when the pair
// already existed; the cache is reconciled either way.
func (uc *IgnoreUsecase) Add(ctx context.Context, bot, user string) (bool, error) {
	err := uc.ignores.Create(ctx, &domain.IgnoreEntry{Bot: bot, IgnoredUser: user})
	switch {
	case errors.Is(err, repo.ErrConflict):
		if !uc.cache.IsIgnored(bot, user) {
			_ = uc.cache.Refresh(ctx, bot)
		}
		return false, nil
	case err != nil:
		logger.L.Error("ignore insert failed", "bot", bot, "user", user, "err", err)
		return false, fmt.Errorf("insert ignore entry: %w", err)
	}

	if err := uc.cache.Refresh(ctx, bot); err != nil {
		return true, err
	}
	return true, nil
}

// Remove takes a user off the bot's ignore list. Returns false when the pair
// was not present.
func (uc *IgnoreUsecase) Remove(ctx context.Context, bot, user string) (bool, error) {
	removed, err := uc.ignores.Remove(ctx, bot, user)
	if err != nil {
		logger.L.Error("ignore delete failed", "bot", bot, "user", user, "err", err)
		return false, fmt.Errorf("delete ignore entry: %w", err)
	}
	if removed == 0 {
		// The cache may have been stale; bring it back in line.
		if uc.cache.IsIgnored(bot, user) {
			_ = uc.cache.Refresh(ctx, bot)
		}
		return false, nil
	}

	if err := uc.cache.Refresh(ctx, bot); err != nil {
		return true, err
	}
	return true, nil
}

// List returns the bot's ignored users, lazily loading the cache when this
// bot has not been seen yet.
func (uc *IgnoreUsecase) List(ctx context.Context, bot string) ([]string, error) {
	if !uc.cache.Known(bot) {
		if err := uc.cache.Refresh(ctx, bot); err != nil {
			return nil, err
		}
	}
	return uc.cache.Ignored(bot), nil
}
