package repo

import (
	"context"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
)

// ReminderFilter selects reminder rows. Zero-valued fields do not constrain
// the query. Scopes expresses a disjunction over several scopes; Keywords is
// a set-membership constraint; ExcludeOwner excludes one owner.
type ReminderFilter struct {
	Scope        *domain.Scope
	Scopes       []domain.Scope
	Owner        string
	ExcludeOwner string
	Keyword      string
	Keywords     []string
	Bot          string
}

// ReminderRepo is the persisted reminder store.
type ReminderRepo interface {
	// Create inserts one reminder. Returns ErrConflict when the
	// (scope, owner, keyword, bot) tuple already exists.
	Create(ctx context.Context, r *domain.Reminder) error

	// Upsert inserts reminders, silently replacing existing tuples.
	Upsert(ctx context.Context, rs []*domain.Reminder) error

	// Remove deletes all rows matching the filter and returns the count.
	Remove(ctx context.Context, f ReminderFilter) (int64, error)

	// List returns all rows matching the filter.
	List(ctx context.Context, f ReminderFilter) ([]*domain.Reminder, error)

	// Scopes returns the distinct scopes that have at least one row.
	Scopes(ctx context.Context) ([]domain.Scope, error)

	Close() error
}
