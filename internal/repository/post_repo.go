package repository

import (
	"Agora/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type PostRepo interface {
	ListPosts(ctx context.Context, exchangeID uint64, offset, limit int) ([]*model.Post, error)
	GetFirstPost(ctx context.Context, exchangeID uint64) (*model.Post, error)
	GetLastPost(ctx context.Context, exchangeID uint64) (*model.Post, error)
	GetPostsByIds(ctx context.Context, ids []uint64) ([]*model.Post, error)
	SearchPosts(ctx context.Context, exchangeID uint64, query string, offset, limit int) ([]*model.Post, int64, error)
	CreatePost(ctx context.Context, exchange *model.Exchange, post *model.Post) error
}

type PostRepoImpl struct {
	db *gorm.DB
}

func NewPostRepo(db *gorm.DB) PostRepo {
	return &PostRepoImpl{db: db}
}

// ListPosts 按创建顺序分页
func (s *PostRepoImpl) ListPosts(ctx context.Context, exchangeID uint64, offset, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	result := s.db.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order("created_at asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&posts)
	if result.Error != nil {
		return nil, result.Error
	}
	return posts, nil
}

func (s *PostRepoImpl) GetFirstPost(ctx context.Context, exchangeID uint64) (*model.Post, error) {
	return s.edgePost(ctx, exchangeID, "created_at asc, id asc")
}

func (s *PostRepoImpl) GetLastPost(ctx context.Context, exchangeID uint64) (*model.Post, error) {
	return s.edgePost(ctx, exchangeID, "created_at desc, id desc")
}

func (s *PostRepoImpl) edgePost(ctx context.Context, exchangeID uint64, order string) (*model.Post, error) {
	var post model.Post
	result := s.db.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order(order).
		First(&post)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &post, nil
}

func (s *PostRepoImpl) GetPostsByIds(ctx context.Context, ids []uint64) ([]*model.Post, error) {
	posts := make([]*model.Post, 0, len(ids))
	if len(ids) == 0 {
		return posts, nil
	}
	result := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at asc, id asc").
		Find(&posts)
	if result.Error != nil {
		return nil, result.Error
	}
	return posts, nil
}

// SearchPosts 未配置 Elasticsearch 时的单个 exchange 内正文检索
func (s *PostRepoImpl) SearchPosts(ctx context.Context, exchangeID uint64, query string, offset, limit int) ([]*model.Post, int64, error) {
	q := s.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("exchange_id = ? AND body LIKE ?", exchangeID, "%"+query+"%")

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*model.Post
	err := q.Order("created_at asc, id asc").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// CreatePost 写入回复并原子地更新计数; 会话中给其他成员打上 new_posts
func (s *PostRepoImpl) CreatePost(ctx context.Context, exchange *model.Exchange, post *model.Post) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post.ExchangeID = exchange.ID
		if post.CreatedAt.IsZero() {
			post.CreatedAt = time.Now()
		}
		if err := tx.Create(post).Error; err != nil {
			return err
		}

		err := tx.Model(&model.Exchange{}).
			Where("id = ?", exchange.ID).
			Updates(map[string]interface{}{
				"posts_count":    gorm.Expr("posts_count + 1"),
				"last_post_at":   post.CreatedAt,
				"last_poster_id": post.UserID,
			}).Error
		if err != nil {
			return err
		}

		if exchange.IsConversation() {
			err = tx.Model(&model.ConversationRelationship{}).
				Where("conversation_id = ? AND user_id <> ?", exchange.ID, post.UserID).
				Update("new_posts", true).Error
			if err != nil {
				return err
			}
		}

		return tx.Select("posts_count").First(exchange, exchange.ID).Error
	})
}
