package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
)

func TestIgnoreAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("new entry is persisted and cached", func(t *testing.T) {
		store := newFakeIgnoreRepo()
		cache := NewIgnoreCache(store)
		uc := NewIgnoreUsecase(store, cache)

		added, err := uc.Add(ctx, "bot", "ou_1")
		require.NoError(t, err)
		assert.True(t, added)
		assert.True(t, cache.IsIgnored("bot", "ou_1"))
	})

	t.Run("duplicate reports false without error", func(t *testing.T) {
		store := newFakeIgnoreRepo()
		cache := NewIgnoreCache(store)
		uc := NewIgnoreUsecase(store, cache)

		_, err := uc.Add(ctx, "bot", "ou_1")
		require.NoError(t, err)
		added, err := uc.Add(ctx, "bot", "ou_1")
		require.NoError(t, err)
		assert.False(t, added)
		assert.True(t, cache.IsIgnored("bot", "ou_1"))
	})

	t.Run("conflict against a cold cache reconciles it", func(t *testing.T) {
		store := newFakeIgnoreRepo()
		require.NoError(t, store.Create(ctx, &domain.IgnoreEntry{Bot: "bot", IgnoredUser: "ou_1"}))
		cache := NewIgnoreCache(store)
		uc := NewIgnoreUsecase(store, cache)

		added, err := uc.Add(ctx, "bot", "ou_1")
		require.NoError(t, err)
		assert.False(t, added)
		assert.True(t, cache.IsIgnored("bot", "ou_1"))
	})
}

func TestIgnoreRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("existing entry goes away", func(t *testing.T) {
		store := newFakeIgnoreRepo()
		cache := NewIgnoreCache(store)
		uc := NewIgnoreUsecase(store, cache)

		_, err := uc.Add(ctx, "bot", "ou_1")
		require.NoError(t, err)

		removed, err := uc.Remove(ctx, "bot", "ou_1")
		require.NoError(t, err)
		assert.True(t, removed)
		assert.False(t, cache.IsIgnored("bot", "ou_1"))
	})

	t.Run("absent entry reports false", func(t *testing.T) {
		store := newFakeIgnoreRepo()
		uc := NewIgnoreUsecase(store, NewIgnoreCache(store))

		removed, err := uc.Remove(ctx, "bot", "ou_1")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestIgnoreList(t *testing.T) {
	ctx := context.Background()
	store := newFakeIgnoreRepo()
	require.NoError(t, store.Create(ctx, &domain.IgnoreEntry{Bot: "bot", IgnoredUser: "ou_2"}))
	require.NoError(t, store.Create(ctx, &domain.IgnoreEntry{Bot: "bot", IgnoredUser: "ou_1"}))

	cache := NewIgnoreCache(store)
	uc := NewIgnoreUsecase(store, cache)

	// Cold cache: List loads lazily.
	users, err := uc.List(ctx, "bot")
	require.NoError(t, err)
	assert.Equal(t, []string{"ou_1", "ou_2"}, users)
	assert.True(t, cache.Known("bot"))
}
