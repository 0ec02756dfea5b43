package repository

import (
	"Agora/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RelationshipRepo interface {
	DefineDiscussionRelationship(ctx context.Context, userID, discussionID uint64, following, favorite *bool) error
	GetDiscussionRelationship(ctx context.Context, userID, discussionID uint64) (*model.DiscussionRelationship, error)
	GetDiscussionRelationships(ctx context.Context, userID uint64, discussionIDs []uint64) (map[uint64]*model.DiscussionRelationship, error)

	AddParticipant(ctx context.Context, conversationID, userID uint64, newPosts bool) (bool, error)
	RemoveParticipant(ctx context.Context, conversationID, userID uint64) error
	GetMembership(ctx context.Context, conversationID, userID uint64) (*model.ConversationRelationship, error)
	GetMemberships(ctx context.Context, userID uint64, conversationIDs []uint64) (map[uint64]*model.ConversationRelationship, error)
	ListParticipants(ctx context.Context, conversationID uint64) ([]*model.User, error)
	ClearNewPosts(ctx context.Context, conversationID, userID uint64) error
}

type RelationshipRepoImpl struct {
	db *gorm.DB
}

func NewRelationshipRepo(db *gorm.DB) RelationshipRepo {
	return &RelationshipRepoImpl{db: db}
}

// DefineDiscussionRelationship 依赖 (user_id, discussion_id) 主键的原子 upsert:
// 不存在时以给定值插入 (缺省为 false), 存在时只覆盖给定的列
func (s *RelationshipRepoImpl) DefineDiscussionRelationship(ctx context.Context, userID, discussionID uint64, following, favorite *bool) error {
	rel := &model.DiscussionRelationship{
		UserID:       userID,
		DiscussionID: discussionID,
	}

	columns := make([]string, 0, 3)
	if following != nil {
		rel.Following = *following
		columns = append(columns, "following")
	}
	if favorite != nil {
		rel.Favorite = *favorite
		columns = append(columns, "favorite")
	}

	conflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "discussion_id"}},
	}
	if len(columns) == 0 {
		conflict.DoNothing = true
	} else {
		conflict.DoUpdates = clause.AssignmentColumns(append(columns, "updated_at"))
	}

	return s.db.WithContext(ctx).Clauses(conflict).Create(rel).Error
}

func (s *RelationshipRepoImpl) GetDiscussionRelationship(ctx context.Context, userID, discussionID uint64) (*model.DiscussionRelationship, error) {
	var rel model.DiscussionRelationship
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id = ?", userID, discussionID).
		First(&rel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &rel, nil
}

func (s *RelationshipRepoImpl) GetDiscussionRelationships(ctx context.Context, userID uint64, discussionIDs []uint64) (map[uint64]*model.DiscussionRelationship, error) {
	res := make(map[uint64]*model.DiscussionRelationship)
	if len(discussionIDs) == 0 {
		return res, nil
	}
	var rels []*model.DiscussionRelationship
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id IN ?", userID, discussionIDs).
		Find(&rels).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		res[r.DiscussionID] = r
	}
	return res, nil
}

// AddParticipant 已是成员时不做任何修改, 返回是否新增
func (s *RelationshipRepoImpl) AddParticipant(ctx context.Context, conversationID, userID uint64, newPosts bool) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "conversation_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(&model.ConversationRelationship{
			UserID:         userID,
			ConversationID: conversationID,
			NewPosts:       newPosts,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *RelationshipRepoImpl) RemoveParticipant(ctx context.Context, conversationID, userID uint64) error {
	return s.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&model.ConversationRelationship{}).Error
}

func (s *RelationshipRepoImpl) GetMembership(ctx context.Context, conversationID, userID uint64) (*model.ConversationRelationship, error) {
	var m model.ConversationRelationship
	result := s.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &m, nil
}

func (s *RelationshipRepoImpl) GetMemberships(ctx context.Context, userID uint64, conversationIDs []uint64) (map[uint64]*model.ConversationRelationship, error) {
	res := make(map[uint64]*model.ConversationRelationship)
	if len(conversationIDs) == 0 {
		return res, nil
	}
	var members []*model.ConversationRelationship
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id IN ?", userID, conversationIDs).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		res[m.ConversationID] = m
	}
	return res, nil
}

func (s *RelationshipRepoImpl) ListParticipants(ctx context.Context, conversationID uint64) ([]*model.User, error) {
	var users []*model.User
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Joins("JOIN conversation_relationships m ON m.user_id = users.id").
		Where("m.conversation_id = ?", conversationID).
		Order("users.username asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ClearNewPosts 非成员返回 ErrNotFound
func (s *RelationshipRepoImpl) ClearNewPosts(ctx context.Context, conversationID, userID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.ConversationRelationship{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return tx.Model(&model.ConversationRelationship{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Update("new_posts", false).Error
	})
}
