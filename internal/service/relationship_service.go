package service

import (
	"Agora/internal/model"
	"Agora/internal/repository"
	"context"
	"errors"
	"strings"
)

// InviteResult Skipped 为无法解析的用户名 (宽松模式)
type InviteResult struct {
	Invited []string
	Skipped []string
}

type RelationshipService interface {
	DefineDiscussionRelationship(ctx context.Context, user *model.User, discussion *model.Exchange, following, favorite *bool) error
	InviteParticipants(ctx context.Context, conversation *model.Exchange, usernames []string) (*InviteResult, error)
	RemoveParticipant(ctx context.Context, conversation *model.Exchange, user *model.User) error
	ClearNewPosts(ctx context.Context, conversation *model.Exchange, user *model.User) error
	ListParticipants(ctx context.Context, conversation *model.Exchange) ([]*model.User, error)
	DiscussionRelationships(ctx context.Context, user *model.User, ids []uint64) (map[uint64]*model.DiscussionRelationship, error)
	Memberships(ctx context.Context, user *model.User, ids []uint64) (map[uint64]*model.ConversationRelationship, error)
}

type relationshipServiceImpl struct {
	relationshipRepo repository.RelationshipRepo
	userRepo         repository.UserRepo
	strictInvites    bool
}

// NewRelationshipService strictInvites 为 true 时任一用户名无法解析即整体拒绝
func NewRelationshipService(relationshipRepo repository.RelationshipRepo, userRepo repository.UserRepo, strictInvites bool) RelationshipService {
	return &relationshipServiceImpl{
		relationshipRepo: relationshipRepo,
		userRepo:         userRepo,
		strictInvites:    strictInvites,
	}
}

// DefineDiscussionRelationship 幂等, 只覆盖非 nil 的标记
func (s *relationshipServiceImpl) DefineDiscussionRelationship(ctx context.Context, user *model.User, discussion *model.Exchange, following, favorite *bool) error {
	if user == nil {
		return ErrLoginRequired
	}
	if discussion == nil || !discussion.IsDiscussion() {
		return ErrParamInvalid
	}
	return s.relationshipRepo.DefineDiscussionRelationship(ctx, user.ID, discussion.ID, following, favorite)
}

func (s *relationshipServiceImpl) InviteParticipants(ctx context.Context, conversation *model.Exchange, usernames []string) (*InviteResult, error) {
	if conversation == nil || !conversation.IsConversation() {
		return nil, ErrNotConversation
	}
	result := &InviteResult{Invited: []string{}, Skipped: []string{}}
	if len(usernames) == 0 {
		return result, nil
	}

	users, err := s.userRepo.GetUsersByUsernames(ctx, usernames)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*model.User, len(users))
	for _, u := range users {
		byName[strings.ToLower(u.Username)] = u
	}

	resolved := make([]*model.User, 0, len(usernames))
	for _, name := range usernames {
		u, ok := byName[strings.ToLower(name)]
		if !ok {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		resolved = append(resolved, u)
	}

	if s.strictInvites && len(result.Skipped) > 0 {
		verr := &ValidationError{}
		verr.Add("username", "exists", "no such user: "+strings.Join(result.Skipped, ", "))
		return nil, verr
	}

	for _, u := range resolved {
		created, err := s.relationshipRepo.AddParticipant(ctx, conversation.ID, u.ID, true)
		if err != nil {
			return nil, err
		}
		if created {
			result.Invited = append(result.Invited, u.Username)
		}
	}
	return result, nil
}

// RemoveParticipant 不是成员时为空操作
func (s *relationshipServiceImpl) RemoveParticipant(ctx context.Context, conversation *model.Exchange, user *model.User) error {
	if user == nil {
		return ErrLoginRequired
	}
	if conversation == nil || !conversation.IsConversation() {
		return ErrNotConversation
	}
	return s.relationshipRepo.RemoveParticipant(ctx, conversation.ID, user.ID)
}

func (s *relationshipServiceImpl) ClearNewPosts(ctx context.Context, conversation *model.Exchange, user *model.User) error {
	if user == nil {
		return ErrLoginRequired
	}
	if conversation == nil || !conversation.IsConversation() {
		return ErrNotConversation
	}
	err := s.relationshipRepo.ClearNewPosts(ctx, conversation.ID, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMembershipNotFound
	}
	return err
}

func (s *relationshipServiceImpl) ListParticipants(ctx context.Context, conversation *model.Exchange) ([]*model.User, error) {
	if conversation == nil || !conversation.IsConversation() {
		return nil, ErrNotConversation
	}
	return s.relationshipRepo.ListParticipants(ctx, conversation.ID)
}

func (s *relationshipServiceImpl) DiscussionRelationships(ctx context.Context, user *model.User, ids []uint64) (map[uint64]*model.DiscussionRelationship, error) {
	if user == nil {
		return map[uint64]*model.DiscussionRelationship{}, nil
	}
	return s.relationshipRepo.GetDiscussionRelationships(ctx, user.ID, ids)
}

func (s *relationshipServiceImpl) Memberships(ctx context.Context, user *model.User, ids []uint64) (map[uint64]*model.ConversationRelationship, error) {
	if user == nil {
		return map[uint64]*model.ConversationRelationship{}, nil
	}
	return s.relationshipRepo.GetMemberships(ctx, user.ID, ids)
}
