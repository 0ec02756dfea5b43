package repository

import (
	"context"
	"testing"

	"Agora/internal/model"
	"Agora/internal/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCategories(t *testing.T, repo CategoryRepo, names ...string) []*model.Category {
	t.Helper()
	out := make([]*model.Category, 0, len(names))
	for _, name := range names {
		c := &model.Category{Name: name}
		require.NoError(t, repo.CreateCategory(context.Background(), c))
		out = append(out, c)
	}
	return out
}

func positions(t *testing.T, repo CategoryRepo) map[string]int {
	t.Helper()
	all, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	out := make(map[string]int, len(all))
	for _, c := range all {
		out[c.Name] = c.Position
	}
	return out
}

func TestCategoryRepo_CreateAppends(t *testing.T) {
	repo := NewCategoryRepo(database.CreateTempDB(t))
	createCategories(t, repo, "a", "b", "c")

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, positions(t, repo))
}

func TestCategoryRepo_DuplicateName(t *testing.T) {
	repo := NewCategoryRepo(database.CreateTempDB(t))
	cats := createCategories(t, repo, "a", "b")

	err := repo.CreateCategory(context.Background(), &model.Category{Name: "a"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.UpdateCategory(context.Background(), cats[1].ID, "a", "", nil)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCategoryRepo_MoveClamps(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepo(database.CreateTempDB(t))
	cats := createCategories(t, repo, "a", "b", "c")

	require.NoError(t, repo.MoveCategory(ctx, cats[0].ID, 99))
	assert.Equal(t, map[string]int{"b": 1, "c": 2, "a": 3}, positions(t, repo))

	require.NoError(t, repo.MoveCategory(ctx, cats[0].ID, 0))
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, positions(t, repo))

	assert.ErrorIs(t, repo.MoveCategory(ctx, 12345, 1), ErrNotFound)
}

func TestCategoryRepo_DeleteRenumbers(t *testing.T) {
	ctx := context.Background()
	db := database.CreateTempDB(t)
	repo := NewCategoryRepo(db)
	cats := createCategories(t, repo, "a", "b", "c")

	poster := &model.User{Username: "alice"}
	require.NoError(t, db.Create(poster).Error)
	_, err := NewExchangeRepo(db).CreateDiscussion(ctx, &model.Exchange{
		Title:      "hello",
		CategoryID: &cats[2].ID,
		PosterID:   poster.ID,
	}, "body")
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteCategory(ctx, cats[2].ID), ErrInUse)
	require.NoError(t, repo.DeleteCategory(ctx, cats[0].ID))
	assert.Equal(t, map[string]int{"b": 1, "c": 2}, positions(t, repo))
	assert.ErrorIs(t, repo.DeleteCategory(ctx, cats[0].ID), ErrNotFound)
}

func TestCategoryRepo_SetTrustedCascades(t *testing.T) {
	ctx := context.Background()
	db := database.CreateTempDB(t)
	repo := NewCategoryRepo(db)
	exchanges := NewExchangeRepo(db)
	cats := createCategories(t, repo, "a")

	poster := &model.User{Username: "alice"}
	require.NoError(t, db.Create(poster).Error)
	ex := &model.Exchange{Title: "hello", CategoryID: &cats[0].ID, PosterID: poster.ID}
	_, err := exchanges.CreateDiscussion(ctx, ex, "body")
	require.NoError(t, err)
	assert.False(t, ex.Trusted)

	require.NoError(t, repo.SetTrusted(ctx, cats[0].ID, true))
	got, err := exchanges.GetExchange(ctx, ex.ID)
	require.NoError(t, err)
	assert.True(t, got.Trusted)

	assert.ErrorIs(t, repo.SetTrusted(ctx, 12345, true), ErrNotFound)
}

func TestCategoryRepo_UpdateRollsBackCascade(t *testing.T) {
	ctx := context.Background()
	db := database.CreateTempDB(t)
	repo := NewCategoryRepo(db)
	exchanges := NewExchangeRepo(db)
	cats := createCategories(t, repo, "a", "b")

	poster := &model.User{Username: "alice"}
	require.NoError(t, db.Create(poster).Error)
	ex := &model.Exchange{Title: "hello", CategoryID: &cats[1].ID, PosterID: poster.ID}
	_, err := exchanges.CreateDiscussion(ctx, ex, "body")
	require.NoError(t, err)

	trusted := true
	err = repo.UpdateCategory(ctx, cats[1].ID, "a", "", &trusted)
	assert.ErrorIs(t, err, ErrDuplicate)

	// 改名失败时级联一并回滚
	got, err := repo.GetCategory(ctx, cats[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
	assert.False(t, got.Trusted)
	reloaded, err := exchanges.GetExchange(ctx, ex.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Trusted)

	require.NoError(t, repo.UpdateCategory(ctx, cats[1].ID, "bee", "buzz", &trusted))
	got, err = repo.GetCategory(ctx, cats[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "bee", got.Name)
	assert.True(t, got.Trusted)
	reloaded, err = exchanges.GetExchange(ctx, ex.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Trusted)

	assert.ErrorIs(t, repo.UpdateCategory(ctx, 12345, "x", "", nil), ErrNotFound)
}
