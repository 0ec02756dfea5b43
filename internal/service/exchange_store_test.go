package service

import (
	"context"
	"testing"

	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeStore_FindNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Find(context.Background(), 404)
	assert.ErrorIs(t, err, ErrExchangeNotFound)
}

func TestExchangeStore_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	poster := env.user(t, "poster")
	staff := env.category(t, "Staff", true)

	_, _, err := env.store.Create(ctx, poster, &dto.ExchangeCreateDTO{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["body"])
	assert.True(t, fields["category_id"])

	// 看不到的分类等同于不存在
	_, _, err = env.store.Create(ctx, poster, &dto.ExchangeCreateDTO{Title: "t", Body: "b", CategoryID: staff.ID})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category_id", verr.Fields[0].Field)

	var count int64
	require.NoError(t, env.db.Model(&model.Exchange{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExchangeStore_CreateInheritsTrust(t *testing.T) {
	env := newTestEnv(t)
	insider := env.user(t, "insider", trusted)
	staff := env.category(t, "Staff", true)

	d := env.discussion(t, insider, staff, "secret")
	assert.True(t, d.Trusted)
	assert.Equal(t, 1, d.PostsCount)
	assert.Equal(t, model.KindDiscussion, d.Kind)
}

func TestExchangeStore_SafeAttributes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	general := env.category(t, "General", false)
	member := env.user(t, "member")
	mod := env.user(t, "mod", moderator)

	in := func() *dto.ExchangeCreateDTO {
		return &dto.ExchangeCreateDTO{
			Title: "t", Body: "b", CategoryID: general.ID,
			Sticky: util.PtrBool(true), Closed: util.PtrBool(true), NSFW: util.PtrBool(true),
		}
	}
	plain, _, err := env.store.Create(ctx, member, in())
	require.NoError(t, err)
	plain = env.reload(t, plain.ID)
	assert.False(t, plain.Sticky)
	assert.False(t, plain.Closed)
	assert.False(t, plain.NSFW)

	flagged, _, err := env.store.Create(ctx, mod, in())
	require.NoError(t, err)
	flagged = env.reload(t, flagged.ID)
	assert.True(t, flagged.Sticky)
	assert.True(t, flagged.Closed)
	assert.True(t, flagged.NSFW)

	require.NoError(t, env.store.Update(ctx, plain, member, &dto.ExchangeUpdateDTO{Sticky: util.PtrBool(true)}))
	assert.False(t, env.reload(t, plain.ID).Sticky)
	assert.Equal(t, member.ID, env.reload(t, plain.ID).UpdatedByID)
}

func TestExchangeStore_UpdateInvalidLeavesUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	poster := env.user(t, "poster")
	general := env.category(t, "General", false)
	d := env.discussion(t, poster, general, "original")

	blank := " "
	err := env.store.Update(ctx, d, poster, &dto.ExchangeUpdateDTO{
		Title:      &blank,
		CategoryID: util.PtrUint64(999),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	fresh := env.reload(t, d.ID)
	assert.Equal(t, "original", fresh.Title)
	assert.Equal(t, general.ID, *fresh.CategoryID)
}

func TestExchangeStore_UpdateMovesCategoryAndBody(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insider := env.user(t, "insider", trusted)
	general := env.category(t, "General", false)
	staff := env.category(t, "Staff", true)
	d := env.discussion(t, insider, general, "moving")

	body := "rewritten"
	require.NoError(t, env.store.Update(ctx, d, insider, &dto.ExchangeUpdateDTO{CategoryID: &staff.ID, Body: &body}))

	fresh := env.reload(t, d.ID)
	assert.Equal(t, staff.ID, *fresh.CategoryID)
	assert.True(t, fresh.Trusted)
	first, err := env.postRepo.GetFirstPost(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", first.Body)
}

func TestExchangeStore_ConversationMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol", admin)

	conv := env.conversation(t, alice, "private", bob)
	assert.Nil(t, conv.CategoryID)

	for _, c := range []struct {
		user *model.User
		want bool
	}{{alice, true}, {bob, true}, {carol, false}, {nil, false}} {
		ok, err := env.store.IsViewableBy(ctx, conv, c.user)
		require.NoError(t, err)
		assert.Equal(t, c.want, ok)
	}

	var members []*model.ConversationRelationship
	require.NoError(t, env.db.Where("conversation_id = ?", conv.ID).Order("user_id").Find(&members).Error)
	require.Len(t, members, 2)
	assert.False(t, members[0].NewPosts)
	assert.True(t, members[1].NewPosts)

	_, _, err := env.store.Create(ctx, alice, &dto.ExchangeCreateDTO{
		Type: string(model.KindConversation), Title: "t", Body: "b", RecipientIDs: []uint64{4242},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recipient_ids", verr.Fields[0].Field)
}

func TestExchangeStore_ConversationByUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	conv, _, err := env.store.Create(ctx, alice, &dto.ExchangeCreateDTO{
		Type: string(model.KindConversation), Title: "t", Body: "b",
		RecipientIDs: []uint64{bob.ID}, RecipientUsername: "Bob",
	})
	require.NoError(t, err)

	var members []*model.ConversationRelationship
	require.NoError(t, env.db.Where("conversation_id = ?", conv.ID).Order("user_id").Find(&members).Error)
	require.Len(t, members, 2)
	assert.Equal(t, bob.ID, members[1].UserID)

	_, _, err = env.store.Create(ctx, alice, &dto.ExchangeCreateDTO{
		Type: string(model.KindConversation), Title: "t", Body: "b", RecipientUsername: "ghost",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "recipient_username", verr.Fields[0].Field)
}

func TestExchangeStore_PopularRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	poster := env.user(t, "poster")
	general := env.category(t, "General", false)
	env.discussion(t, poster, general, "hot")

	for _, days := range []int{0, 181} {
		_, _, err := env.store.ListViewable(ctx, nil, ListQuery{Sort: consts.SortPopular, Days: days, Limit: 10})
		var rerr *InvalidRangeError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, days, rerr.Value)
		assert.Equal(t, env.cfg.PopularDefaultDays, rerr.Suggested)
	}

	list, total, err := env.store.ListViewable(ctx, nil, ListQuery{Sort: consts.SortPopular, Days: 7, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestExchangeStore_ListViewableHidesTrusted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insider := env.user(t, "insider", trusted)
	general := env.category(t, "General", false)
	staff := env.category(t, "Staff", true)
	env.discussion(t, insider, general, "open")
	env.discussion(t, insider, staff, "gated")
	env.conversation(t, insider, "private")

	_, total, err := env.store.ListViewable(ctx, nil, ListQuery{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = env.store.ListViewable(ctx, insider, ListQuery{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
