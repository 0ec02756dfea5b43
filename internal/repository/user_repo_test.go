package repository

import (
	"context"
	"testing"

	"Agora/internal/model"
	"Agora/internal/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_UsernameLookupIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(database.CreateTempDB(t))
	require.NoError(t, repo.CreateUser(ctx, &model.User{Username: "bob"}))
	require.NoError(t, repo.CreateUser(ctx, &model.User{Username: "Carol"}))

	users, err := repo.GetUsersByUsernames(ctx, []string{"Bob", "carol", "dave"})
	require.NoError(t, err)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"bob", "Carol"}, names)

	u, err := repo.GetUserByUsername(ctx, "BOB")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "bob", u.Username)

	u, err = repo.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}
