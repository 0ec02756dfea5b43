package service

import (
	"context"
	"sync"
	"testing"

	"Agora/internal/api/config"
	"Agora/internal/model"
	"Agora/internal/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipService_DefineIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "u")
	general := env.category(t, "General", false)
	d := env.discussion(t, u, general, "d")

	require.NoError(t, env.relationships.DefineDiscussionRelationship(ctx, u, d, nil, util.PtrBool(true)))
	require.NoError(t, env.relationships.DefineDiscussionRelationship(ctx, u, d, nil, util.PtrBool(true)))

	var rows []*model.DiscussionRelationship
	require.NoError(t, env.db.Where("user_id = ? AND discussion_id = ?", u.ID, d.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Favorite)
	assert.False(t, rows[0].Following)

	require.NoError(t, env.relationships.DefineDiscussionRelationship(ctx, u, d, util.PtrBool(true), nil))
	rows = nil
	require.NoError(t, env.db.Where("user_id = ? AND discussion_id = ?", u.ID, d.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Favorite)
	assert.True(t, rows[0].Following)

	require.NoError(t, env.relationships.DefineDiscussionRelationship(ctx, u, d, nil, util.PtrBool(false)))
	rels, err := env.relationships.DiscussionRelationships(ctx, u, []uint64{d.ID})
	require.NoError(t, err)
	assert.False(t, rels[d.ID].Favorite)
	assert.True(t, rels[d.ID].Following)
}

func TestRelationshipService_ConcurrentDefine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "u")
	general := env.category(t, "General", false)
	d := env.discussion(t, u, general, "d")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.relationships.DefineDiscussionRelationship(ctx, u, d, nil, util.PtrBool(true))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, env.db.Model(&model.DiscussionRelationship{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRelationshipService_DuplicateInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	env.user(t, "bob")
	conv := env.conversation(t, alice, "chat")

	res, err := env.relationships.InviteParticipants(ctx, conv, []string{"bob", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, res.Invited)
	assert.Equal(t, []string{"ghost"}, res.Skipped)

	res, err = env.relationships.InviteParticipants(ctx, conv, []string{"bob"})
	require.NoError(t, err)
	assert.Empty(t, res.Invited)

	users, err := env.relationships.ListParticipants(ctx, conv)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestRelationshipService_InviteIgnoresCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	env.user(t, "bob")
	conv := env.conversation(t, alice, "chat")

	res, err := env.relationships.InviteParticipants(ctx, conv, []string{"Bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, res.Invited)
	assert.Empty(t, res.Skipped)
}

func TestRelationshipService_StrictInvite(t *testing.T) {
	env := newTestEnv(t, func(c *config.ForumConfig) { c.StrictInvites = true })
	ctx := context.Background()
	alice := env.user(t, "alice")
	env.user(t, "bob")
	conv := env.conversation(t, alice, "chat")

	_, err := env.relationships.InviteParticipants(ctx, conv, []string{"bob", "ghost"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Fields[0].Field)

	users, err := env.relationships.ListParticipants(ctx, conv)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRelationshipService_InviteRequiresConversation(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "u")
	d := env.discussion(t, u, env.category(t, "General", false), "d")

	_, err := env.relationships.InviteParticipants(context.Background(), d, []string{"u"})
	assert.ErrorIs(t, err, ErrNotConversation)
}

func TestRelationshipService_RemoveAndClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	conv := env.conversation(t, alice, "chat", bob)

	require.NoError(t, env.relationships.ClearNewPosts(ctx, conv, bob))
	members, err := env.relationships.Memberships(ctx, bob, []uint64{conv.ID})
	require.NoError(t, err)
	assert.False(t, members[conv.ID].NewPosts)

	require.NoError(t, env.relationships.RemoveParticipant(ctx, conv, bob))
	require.NoError(t, env.relationships.RemoveParticipant(ctx, conv, bob))
	assert.ErrorIs(t, env.relationships.ClearNewPosts(ctx, conv, bob), ErrMembershipNotFound)

	ok, err := env.store.IsViewableBy(ctx, conv, bob)
	require.NoError(t, err)
	assert.False(t, ok)
}
