package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
)

func TestReminderAdd(t *testing.T) {
	ctx := context.Background()
	scope := domain.GroupScope("oc_a")

	t.Run("empty keyword is rejected", func(t *testing.T) {
		uc := NewReminderUsecase(newFakeReminderRepo(), NewKeywordCache(newFakeReminderRepo()))
		_, err := uc.Add(ctx, scope, "ou_1", "", "bot")
		assert.ErrorIs(t, err, ErrEmptyKeyword)
	})

	t.Run("new reminder is created and cached", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		uc := NewReminderUsecase(store, cache)

		result, err := uc.Add(ctx, scope, "ou_1", "deploy", "bot")
		require.NoError(t, err)
		assert.Equal(t, AddCreated, result)
		assert.ElementsMatch(t, []string{"deploy"}, cache.Lookup(scope))

		rows, err := store.List(ctx, removeOwnerFilter(scope, "ou_1", "deploy"))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("duplicate registration is reported, not an error", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		uc := NewReminderUsecase(store, cache)

		_, err := uc.Add(ctx, scope, "ou_1", "deploy", "bot")
		require.NoError(t, err)
		result, err := uc.Add(ctx, scope, "ou_1", "deploy", "bot")
		require.NoError(t, err)
		assert.Equal(t, AddExisted, result)

		rows, err := store.List(ctx, removeOwnerFilter(scope, "ou_1", "deploy"))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("global add upserts and never conflicts", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		uc := NewReminderUsecase(store, cache)

		result, err := uc.Add(ctx, domain.GlobalScope(), "ou_1", "oncall", "bot")
		require.NoError(t, err)
		assert.Equal(t, AddCreated, result)
		result, err = uc.Add(ctx, domain.GlobalScope(), "ou_1", "oncall", "bot")
		require.NoError(t, err)
		assert.Equal(t, AddCreated, result)

		assert.ElementsMatch(t, []string{"oncall"}, cache.Lookup(domain.GlobalScope()))
	})
}

func TestReminderRemove(t *testing.T) {
	ctx := context.Background()
	scope := domain.GroupScope("oc_a")

	t.Run("removes own rows and patches the cache", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		uc := NewReminderUsecase(store, cache)

		_, err := uc.Add(ctx, scope, "ou_1", "deploy", "bot")
		require.NoError(t, err)
		_, err = uc.Add(ctx, scope, "ou_1", "release", "bot")
		require.NoError(t, err)

		removed, err := uc.Remove(ctx, scope, "ou_1", []string{"deploy", "release"}, "bot")
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)
		assert.Nil(t, cache.Lookup(scope))
	})

	t.Run("keyword shared with another owner stays cached", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		uc := NewReminderUsecase(store, cache)

		_, err := uc.Add(ctx, scope, "ou_1", "deploy", "bot")
		require.NoError(t, err)
		_, err = uc.Add(ctx, scope, "ou_2", "deploy", "bot")
		require.NoError(t, err)

		removed, err := uc.Remove(ctx, scope, "ou_1", []string{"deploy"}, "bot")
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
		assert.ElementsMatch(t, []string{"deploy"}, cache.Lookup(scope))
	})

	t.Run("nothing to remove yields zero without error", func(t *testing.T) {
		store := newFakeReminderRepo()
		uc := NewReminderUsecase(store, NewKeywordCache(store))

		removed, err := uc.Remove(ctx, scope, "ou_1", []string{"absent"}, "bot")
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("no keywords is rejected", func(t *testing.T) {
		store := newFakeReminderRepo()
		uc := NewReminderUsecase(store, NewKeywordCache(store))

		_, err := uc.Remove(ctx, scope, "ou_1", nil, "bot")
		assert.ErrorIs(t, err, ErrEmptyKeyword)
	})
}

func TestReminderList(t *testing.T) {
	ctx := context.Background()
	store := newFakeReminderRepo()
	cache := NewKeywordCache(store)
	uc := NewReminderUsecase(store, cache)

	_, err := uc.Add(ctx, domain.GroupScope("oc_b"), "ou_1", "deploy", "bot")
	require.NoError(t, err)
	_, err = uc.Add(ctx, domain.GroupScope("oc_a"), "ou_1", "deploy", "bot")
	require.NoError(t, err)
	_, err = uc.Add(ctx, domain.GlobalScope(), "ou_1", "deploy", "bot")
	require.NoError(t, err)
	_, err = uc.Add(ctx, domain.GroupScope("oc_a"), "ou_1", "release", "bot")
	require.NoError(t, err)
	_, err = uc.Add(ctx, domain.GroupScope("oc_a"), "ou_2", "other", "bot")
	require.NoError(t, err)

	overviews, err := uc.List(ctx, "ou_1", "bot")
	require.NoError(t, err)

	require.Len(t, overviews, 2)
	assert.Equal(t, ReminderOverview{Keyword: "deploy", Global: true, Groups: []string{"oc_a", "oc_b"}}, overviews[0])
	assert.Equal(t, ReminderOverview{Keyword: "release", Groups: []string{"oc_a"}}, overviews[1])

	t.Run("owner with no reminders", func(t *testing.T) {
		overviews, err := uc.List(ctx, "ou_nobody", "bot")
		require.NoError(t, err)
		assert.Empty(t, overviews)
	})
}
