package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
)

func removeOwnerFilter(scope domain.Scope, owner, keyword string) repo.ReminderFilter {
	return repo.ReminderFilter{Scope: &scope, Owner: owner, Keyword: keyword}
}

func TestKeywordCacheRebuildAll(t *testing.T) {
	ctx := context.Background()
	store := newFakeReminderRepo()
	cache := NewKeywordCache(store)

	require.NoError(t, store.Create(ctx, &domain.Reminder{
		Scope: domain.GroupScope("oc_a"), Owner: "ou_1", Keyword: "deploy", Bot: "bot",
	}))
	require.NoError(t, store.Create(ctx, &domain.Reminder{
		Scope: domain.GroupScope("oc_a"), Owner: "ou_2", Keyword: "release", Bot: "bot",
	}))
	require.NoError(t, store.Create(ctx, &domain.Reminder{
		Scope: domain.GlobalScope(), Owner: "ou_1", Keyword: "oncall", Bot: "bot",
	}))

	require.NoError(t, cache.RebuildAll(ctx))

	assert.ElementsMatch(t, []string{"deploy", "release"}, cache.Lookup(domain.GroupScope("oc_a")))
	assert.ElementsMatch(t, []string{"oncall"}, cache.Lookup(domain.GlobalScope()))
	assert.Nil(t, cache.Lookup(domain.GroupScope("oc_other")))

	t.Run("keeps last known good on store error", func(t *testing.T) {
		store.err = errors.New("store down")
		assert.Error(t, cache.RebuildAll(ctx))
		assert.ElementsMatch(t, []string{"deploy", "release"}, cache.Lookup(domain.GroupScope("oc_a")))
		store.err = nil
	})

	t.Run("empty store still yields a global entry", func(t *testing.T) {
		empty := NewKeywordCache(newFakeReminderRepo())
		require.NoError(t, empty.RebuildAll(ctx))
		assert.Nil(t, empty.Lookup(domain.GlobalScope()))
	})
}

func TestKeywordCachePatchAdd(t *testing.T) {
	cache := NewKeywordCache(newFakeReminderRepo())
	scope := domain.GroupScope("oc_a")

	cache.PatchAdd(scope, "deploy")
	cache.PatchAdd(scope, "deploy")
	cache.PatchAdd(scope, "release")

	assert.ElementsMatch(t, []string{"deploy", "release"}, cache.Lookup(scope))
}

func TestKeywordCachePatchRemove(t *testing.T) {
	ctx := context.Background()
	scope := domain.GroupScope("oc_a")

	t.Run("keyword still held by another owner survives", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		require.NoError(t, store.Create(ctx, &domain.Reminder{
			Scope: scope, Owner: "ou_1", Keyword: "deploy", Bot: "bot",
		}))
		require.NoError(t, store.Create(ctx, &domain.Reminder{
			Scope: scope, Owner: "ou_2", Keyword: "deploy", Bot: "bot",
		}))
		require.NoError(t, cache.RebuildAll(ctx))

		_, err := store.Remove(ctx, removeOwnerFilter(scope, "ou_1", "deploy"))
		require.NoError(t, err)
		cache.PatchRemove(ctx, scope, []string{"deploy"})

		assert.ElementsMatch(t, []string{"deploy"}, cache.Lookup(scope))
	})

	t.Run("last row evicts keyword and empty scope", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		require.NoError(t, store.Create(ctx, &domain.Reminder{
			Scope: scope, Owner: "ou_1", Keyword: "deploy", Bot: "bot",
		}))
		require.NoError(t, cache.RebuildAll(ctx))

		_, err := store.Remove(ctx, removeOwnerFilter(scope, "ou_1", "deploy"))
		require.NoError(t, err)
		cache.PatchRemove(ctx, scope, []string{"deploy"})

		assert.Nil(t, cache.Lookup(scope))
	})

	t.Run("store error leaves the cache untouched", func(t *testing.T) {
		store := newFakeReminderRepo()
		cache := NewKeywordCache(store)
		require.NoError(t, store.Create(ctx, &domain.Reminder{
			Scope: scope, Owner: "ou_1", Keyword: "deploy", Bot: "bot",
		}))
		require.NoError(t, cache.RebuildAll(ctx))

		store.err = errors.New("store down")
		cache.PatchRemove(ctx, scope, []string{"deploy"})

		assert.ElementsMatch(t, []string{"deploy"}, cache.Lookup(scope))
	})
}
