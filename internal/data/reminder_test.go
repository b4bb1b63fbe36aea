package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
)

func newTestReminderRepo(t *testing.T) repo.ReminderRepo {
	t.Helper()
	db, err := OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r, err := NewReminderRepo(db)
	require.NoError(t, err)
	return r
}

func TestReminderRepoCreate(t *testing.T) {
	ctx := context.Background()
	r := newTestReminderRepo(t)

	reminder := &domain.Reminder{
		Scope: domain.GroupScope("oc_a"), Owner: "ou_1", Keyword: "deploy", Bot: "bot",
	}
	require.NoError(t, r.Create(ctx, reminder))

	t.Run("duplicate tuple maps to ErrConflict", func(t *testing.T) {
		assert.ErrorIs(t, r.Create(ctx, reminder), repo.ErrConflict)
	})

	t.Run("same keyword in another scope is a different tuple", func(t *testing.T) {
		other := *reminder
		other.Scope = domain.GlobalScope()
		assert.NoError(t, r.Create(ctx, &other))
	})

	rows, err := r.List(ctx, repo.ReminderFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReminderRepoUpsert(t *testing.T) {
	ctx := context.Background()
	r := newTestReminderRepo(t)

	reminder := &domain.Reminder{
		Scope: domain.GlobalScope(), Owner: "ou_1", Keyword: "oncall", Bot: "bot",
	}
	require.NoError(t, r.Upsert(ctx, []*domain.Reminder{reminder}))
	require.NoError(t, r.Upsert(ctx, []*domain.Reminder{reminder}))

	rows, err := r.List(ctx, repo.ReminderFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Scope.IsGlobal())
	assert.Equal(t, "oncall", rows[0].Keyword)
}

func TestReminderRepoFilters(t *testing.T) {
	ctx := context.Background()
	r := newTestReminderRepo(t)

	seed := []*domain.Reminder{
		{Scope: domain.GroupScope("oc_a"), Owner: "ou_1", Keyword: "deploy", Bot: "bot"},
		{Scope: domain.GroupScope("oc_a"), Owner: "ou_2", Keyword: "deploy", Bot: "bot"},
		{Scope: domain.GroupScope("oc_b"), Owner: "ou_1", Keyword: "release", Bot: "bot"},
		{Scope: domain.GlobalScope(), Owner: "ou_3", Keyword: "deploy", Bot: "bot"},
		{Scope: domain.GroupScope("oc_a"), Owner: "ou_1", Keyword: "deploy", Bot: "other-bot"},
	}
	for _, reminder := range seed {
		require.NoError(t, r.Create(ctx, reminder))
	}

	t.Run("scope disjunction with keyword set and owner exclusion", func(t *testing.T) {
		rows, err := r.List(ctx, repo.ReminderFilter{
			Scopes:       []domain.Scope{domain.GroupScope("oc_a"), domain.GlobalScope()},
			Keywords:     []string{"deploy"},
			Bot:          "bot",
			ExcludeOwner: "ou_1",
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.NotEqual(t, "ou_1", row.Owner)
			assert.Equal(t, "deploy", row.Keyword)
			assert.Equal(t, "bot", row.Bot)
		}
	})

	t.Run("owner filter", func(t *testing.T) {
		rows, err := r.List(ctx, repo.ReminderFilter{Owner: "ou_1", Bot: "bot"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("scopes are distinct", func(t *testing.T) {
		scopes, err := r.Scopes(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.Scope{
			domain.GroupScope("oc_a"),
			domain.GroupScope("oc_b"),
			domain.GlobalScope(),
		}, scopes)
	})
}

func TestReminderRepoRemove(t *testing.T) {
	ctx := context.Background()
	r := newTestReminderRepo(t)

	scope := domain.GroupScope("oc_a")
	seed := []*domain.Reminder{
		{Scope: scope, Owner: "ou_1", Keyword: "deploy", Bot: "bot"},
		{Scope: scope, Owner: "ou_1", Keyword: "release", Bot: "bot"},
		{Scope: scope, Owner: "ou_2", Keyword: "deploy", Bot: "bot"},
	}
	for _, reminder := range seed {
		require.NoError(t, r.Create(ctx, reminder))
	}

	removed, err := r.Remove(ctx, repo.ReminderFilter{
		Scope:    &scope,
		Owner:    "ou_1",
		Keywords: []string{"deploy", "release"},
		Bot:      "bot",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	rows, err := r.List(ctx, repo.ReminderFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ou_2", rows[0].Owner)

	t.Run("no match removes nothing", func(t *testing.T) {
		removed, err := r.Remove(ctx, repo.ReminderFilter{Scope: &scope, Owner: "ou_9"})
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}
