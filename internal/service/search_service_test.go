package service

import (
	"context"
	"errors"
	"testing"

	"Agora/internal/api/dto"
	"Agora/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndexedSearch(t *testing.T, env *testEnv, exchanges ...*model.Exchange) (*fakeSearchRepo, SearchService) {
	t.Helper()
	repo := &fakeSearchRepo{}
	search := NewSearchService(repo, env.exchangeRepo, env.postRepo, NewTrustPolicy())
	for _, ex := range exchanges {
		require.NoError(t, search.IndexExchange(context.Background(), ex))
	}
	return repo, search
}

func TestSearchService_CategoryTrustSyncedToIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	mod := env.user(t, "mod", moderator)
	staff := env.category(t, "Staff", false)
	ex := env.discussion(t, alice, staff, "Gopher salaries")

	repo, search := newIndexedSearch(t, env, ex)
	categories := NewCategoryService(env.categoryRepo, nil, search, NewTrustPolicy(), false)

	require.NoError(t, categories.SetTrusted(ctx, mod, staff.ID, true))
	assert.True(t, repo.exchanges[ex.ID].Trusted)

	found, total, err := search.SearchExchanges(ctx, nil, "Gopher", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.EqualValues(t, 0, total)

	// 改名时 trusted 变化同样同步
	off := false
	_, err = categories.UpdateCategory(ctx, mod, staff.ID, &dto.CategoryBaseDTO{Name: "Open", Trusted: &off})
	require.NoError(t, err)
	assert.False(t, repo.exchanges[ex.ID].Trusted)
}

func TestSearchService_TotalExcludesFilteredHits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	general := env.category(t, "General", false)
	staff := env.category(t, "Staff", false)
	open := env.discussion(t, alice, general, "Gopher meetup")
	hidden := env.discussion(t, alice, staff, "Gopher salaries")

	_, search := newIndexedSearch(t, env, open, hidden)
	// 级联落库但未同步到索引
	require.NoError(t, env.categoryRepo.SetTrusted(ctx, staff.ID, true))

	found, total, err := search.SearchExchanges(ctx, nil, "Gopher", 0, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, open.ID, found[0].ID)
	assert.EqualValues(t, 1, total)
}

func TestSearchService_FallsBackToDatabase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	general := env.category(t, "General", false)
	open := env.discussion(t, alice, general, "Gopher meetup")

	repo, search := newIndexedSearch(t, env)
	repo.err = errors.New("connection refused")

	found, total, err := search.SearchExchanges(ctx, nil, "Gopher", 0, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, open.ID, found[0].ID)
	assert.EqualValues(t, 1, total)
}
