package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
	"github.com/anthropics/feishu-keyword-watch/internal/logger"
)

// ErrEmptyKeyword rejects registrations without a keyword before any store
// access happens.
var ErrEmptyKeyword = errors.New("keyword must not be empty")

// AddResult classifies the outcome of a reminder registration.
type AddResult int

const (
	// AddCreated means a new reminder row was written.
	AddCreated AddResult = iota
	// AddExisted means the tuple was already registered; not an error.
	AddExisted
)

// ReminderUsecase validates and executes reminder mutations, keeping the
// keyword cache consistent with every completed store write.
type ReminderUsecase struct {
	reminders repo.ReminderRepo
	cache     *KeywordCache
}

// NewReminderUsecase creates the reminder management engine.
func NewReminderUsecase(reminders repo.ReminderRepo, cache *KeywordCache) *ReminderUsecase {
	return &ReminderUsecase{reminders: reminders, cache: cache}
}

// Add registers one keyword for one owner in one scope. Group-scope adds use
// a plain insert and classify the duplicate-key case as AddExisted; global
// adds use upsert semantics, since re-registering a global keyword is a
// benign no-op. Either way the cache ends up containing the keyword: a
// pre-existing row logically guarantees it belongs there.
func (uc *ReminderUsecase) Add(ctx context.Context, scope domain.Scope, owner, keyword, bot string) (AddResult, error) {
	if keyword == "" {
		return 0, ErrEmptyKeyword
	}

	r := &domain.Reminder{Scope: scope, Owner: owner, Keyword: keyword, Bot: bot}

	if scope.IsGlobal() {
		if err := uc.reminders.Upsert(ctx, []*domain.Reminder{r}); err != nil {
			logger.L.Error("global reminder upsert failed", "owner", owner, "keyword", keyword, "err", err)
			return 0, fmt.Errorf("upsert global reminder: %w", err)
		}
		uc.cache.PatchAdd(scope, keyword)
		return AddCreated, nil
	}

	err := uc.reminders.Create(ctx, r)
	switch {
	case errors.Is(err, repo.ErrConflict):
		uc.cache.PatchAdd(scope, keyword)
		return AddExisted, nil
	case err != nil:
		logger.L.Error("reminder insert failed", "scope", scope, "owner", owner, "keyword", keyword, "err", err)
		return 0, fmt.Errorf("insert reminder: %w", err)
	}

	uc.cache.PatchAdd(scope, keyword)
	return AddCreated, nil
}

// Remove deletes the owner's reminders for the given keywords in one scope
// and returns how many rows went away. Zero means "not found" and is not an
// error. The cache is patched with the check-before-evict rule.
func (uc *ReminderUsecase) Remove(ctx context.Context, scope domain.Scope, owner string, keywords []string, bot string) (int64, error) {
	if len(keywords) == 0 {
		return 0, ErrEmptyKeyword
	}

	removed, err := uc.reminders.Remove(ctx, repo.ReminderFilter{
		Scope:    &scope,
		Owner:    owner,
		Keywords: keywords,
		Bot:      bot,
	})
	if err != nil {
		logger.L.Error("reminder delete failed", "scope", scope, "owner", owner, "err", err)
		return 0, fmt.Errorf("delete reminders: %w", err)
	}
	if removed > 0 {
		uc.cache.PatchRemove(ctx, scope, keywords)
	}
	return removed, nil
}

// ReminderOverview is one keyword of an owner's list, annotated with where
// it applies. Display-only; List has no side effects.
type ReminderOverview struct {
	Keyword string
	Global  bool
	Groups  []string // group IDs with a scope-specific row
}

// List groups the owner's reminders by keyword, sorted by keyword.
func (uc *ReminderUsecase) List(ctx context.Context, owner, bot string) ([]ReminderOverview, error) {
	rows, err := uc.reminders.List(ctx, repo.ReminderFilter{Owner: owner, Bot: bot})
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	byKeyword := map[string]*ReminderOverview{}
	for _, r := range rows {
		ov := byKeyword[r.Keyword]
		if ov == nil {
			ov = &ReminderOverview{Keyword: r.Keyword}
			byKeyword[r.Keyword] = ov
		}
		if r.Scope.IsGlobal() {
			ov.Global = true
		} else {
			ov.Groups = append(ov.Groups, r.Scope.GroupID())
		}
	}

	overviews := make([]ReminderOverview, 0, len(byKeyword))
	for _, ov := range byKeyword {
		sort.Strings(ov.Groups)
		overviews = append(overviews, *ov)
	}
	sort.Slice(overviews, func(i, j int) bool { return overviews[i].Keyword < overviews[j].Keyword })
	return overviews, nil
}
