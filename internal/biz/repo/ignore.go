package repo

import (
	"context"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
)

// IgnoreRepo is the persisted ignore-list store.
type IgnoreRepo interface {
	// Create inserts one ignore entry. Returns ErrConflict when the
	// (bot, ignoredUser) pair already exists.
	Create(ctx context.Context, e *domain.IgnoreEntry) error

	// Remove deletes the (bot, user) pair and returns the removed count.
	Remove(ctx context.Context, bot, user string) (int64, error)

	// ListByBot returns all entries owned by one bot.
	ListByBot(ctx context.Context, bot string) ([]*domain.IgnoreEntry, error)

	Close() error
}
