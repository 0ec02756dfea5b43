package repository

import (
	"Agora/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExchangeChanges 更新时只写入非 nil 字段
type ExchangeChanges struct {
	Title       *string
	Body        *string
	CategoryID  *uint64
	Sticky      *bool
	Closed      *bool
	NSFW        *bool
	UpdatedByID uint64
}

type ExchangeRepo interface {
	GetExchange(ctx context.Context, id uint64) (*model.Exchange, error)
	GetExchangesByIds(ctx context.Context, ids []uint64) ([]*model.Exchange, error)
	ListDiscussions(ctx context.Context, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error)
	ListPopular(ctx context.Context, includeTrusted bool, since time.Time, offset, limit int) ([]*model.Exchange, int64, error)
	ListFavorites(ctx context.Context, userID uint64, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error)
	ListFollowing(ctx context.Context, userID uint64, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error)
	ListConversations(ctx context.Context, userID uint64, offset, limit int) ([]*model.Exchange, int64, error)
	SearchTitles(ctx context.Context, query string, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error)
	CreateDiscussion(ctx context.Context, exchange *model.Exchange, body string) (*model.Post, error)
	CreateConversation(ctx context.Context, exchange *model.Exchange, body string, members []*model.ConversationRelationship) (*model.Post, error)
	UpdateExchange(ctx context.Context, id uint64, changes *ExchangeChanges) error
}

type ExchangeRepoImpl struct {
	db *gorm.DB
}

func NewExchangeRepo(db *gorm.DB) ExchangeRepo {
	return &ExchangeRepoImpl{db: db}
}

// discussions 讨论范围, includeTrusted 为 false 时排除受信讨论
func discussions(includeTrusted bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("exchanges.kind = ?", model.KindDiscussion)
		if !includeTrusted {
			db = db.Where("exchanges.trusted = ?", false)
		}
		return db
	}
}

func (s *ExchangeRepoImpl) GetExchange(ctx context.Context, id uint64) (*model.Exchange, error) {
	var exchange model.Exchange
	result := s.db.WithContext(ctx).
		Preload("Category").
		First(&exchange, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &exchange, nil
}

func (s *ExchangeRepoImpl) GetExchangesByIds(ctx context.Context, ids []uint64) ([]*model.Exchange, error) {
	exchanges := make([]*model.Exchange, 0, len(ids))
	if len(ids) == 0 {
		return exchanges, nil
	}
	result := s.db.WithContext(ctx).
		Preload("Category").
		Where("id IN ?", ids).
		Find(&exchanges)
	if result.Error != nil {
		return nil, result.Error
	}
	return exchanges, nil
}

// ListDiscussions 置顶优先, 其余按最后回复时间倒序
func (s *ExchangeRepoImpl) ListDiscussions(ctx context.Context, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Exchange{}).
		Scopes(discussions(includeTrusted))
	return s.page(query, "exchanges.sticky desc, exchanges.last_post_at desc, exchanges.id desc", offset, limit)
}

// ListPopular 按 since 之后的回复数倒序, 窗口内没有回复的讨论不出现
func (s *ExchangeRepoImpl) ListPopular(ctx context.Context, includeTrusted bool, since time.Time, offset, limit int) ([]*model.Exchange, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Exchange{}).
		Scopes(discussions(includeTrusted)).
		Where("EXISTS (SELECT 1 FROM posts WHERE posts.exchange_id = exchanges.id AND posts.created_at > ?)", since)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var exchanges []*model.Exchange
	err := query.
		Select("exchanges.*, (SELECT COUNT(*) FROM posts WHERE posts.exchange_id = exchanges.id AND posts.created_at > ?) AS recent_posts", since).
		Preload("Category").
		Order("recent_posts desc, exchanges.last_post_at desc, exchanges.id desc").
		Offset(offset).
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, 0, err
	}
	return exchanges, total, nil
}

func (s *ExchangeRepoImpl) ListFavorites(ctx context.Context, userID uint64, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Exchange{}).
		Joins("JOIN discussion_relationships r ON r.discussion_id = exchanges.id AND r.user_id = ? AND r.favorite = ?", userID, true).
		Scopes(discussions(includeTrusted))
	return s.page(query, "exchanges.last_post_at desc, exchanges.id desc", offset, limit)
}

func (s *ExchangeRepoImpl) ListFollowing(ctx context.Context, userID uint64, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Exchange{}).
		Joins("JOIN discussion_relationships r ON r.discussion_id = exchanges.id AND r.user_id = ? AND r.following = ?", userID, true).
		Scopes(discussions(includeTrusted))
	return s.page(query, "exchanges.last_post_at desc, exchanges.id desc", offset, limit)
}

func (s *ExchangeRepoImpl) ListConversations(ctx context.Context, userID uint64, offset, limit int) ([]*model.Exchange, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Exchange{}).
		Joins("JOIN conversation_relationships m ON m.conversation_id = exchanges.id AND m.user_id = ?", userID).
		Where("exchanges.kind = ?", model.KindConversation)
	return s.page(query, "exchanges.last_post_at desc, exchanges.id desc", offset, limit)
}

// SearchTitles 未配置 Elasticsearch 时的标题检索
func (s *ExchangeRepoImpl) SearchTitles(ctx context.Context, query string, includeTrusted bool, offset, limit int) ([]*model.Exchange, int64, error) {
	q := s.db.WithContext(ctx).
		Model(&model.Exchange{}).
		Scopes(discussions(includeTrusted)).
		Where("exchanges.title LIKE ?", "%"+query+"%")
	return s.page(q, "exchanges.last_post_at desc, exchanges.id desc", offset, limit)
}

// CreateDiscussion 在同一事务中写入讨论与首帖, trusted 取自分类当前值
func (s *ExchangeRepoImpl) CreateDiscussion(ctx context.Context, exchange *model.Exchange, body string) (*model.Post, error) {
	var post *model.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if exchange.CategoryID == nil {
			return ErrNotFound
		}
		var category model.Category
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&category, *exchange.CategoryID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		exchange.Kind = model.KindDiscussion
		exchange.Trusted = category.Trusted
		post, err = createWithFirstPost(tx, exchange, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// CreateConversation 在同一事务中写入会话, 首帖与初始成员
func (s *ExchangeRepoImpl) CreateConversation(ctx context.Context, exchange *model.Exchange, body string, members []*model.ConversationRelationship) (*model.Post, error) {
	var post *model.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exchange.Kind = model.KindConversation
		exchange.CategoryID = nil
		exchange.Trusted = false

		var err error
		post, err = createWithFirstPost(tx, exchange, body)
		if err != nil {
			return err
		}
		for _, m := range members {
			m.ConversationID = exchange.ID
			err = tx.Clauses(clause.OnConflict{DoNothing: true}).
				Omit(clause.Associations).
				Create(m).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// UpdateExchange 校验通过后在一个事务里写入, 更换分类时同步 trusted
func (s *ExchangeRepoImpl) UpdateExchange(ctx context.Context, id uint64, changes *ExchangeChanges) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"updated_by_id": changes.UpdatedByID,
		}
		if changes.Title != nil {
			updates["title"] = *changes.Title
		}
		if changes.Sticky != nil {
			updates["sticky"] = *changes.Sticky
		}
		if changes.Closed != nil {
			updates["closed"] = *changes.Closed
		}
		if changes.NSFW != nil {
			updates["nsfw"] = *changes.NSFW
		}
		if changes.CategoryID != nil {
			var category model.Category
			err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&category, *changes.CategoryID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			updates["category_id"] = category.ID
			updates["trusted"] = category.Trusted
		}

		err := tx.Model(&model.Exchange{}).Where("id = ?", id).Updates(updates).Error
		if err != nil {
			return err
		}

		if changes.Body != nil {
			var first model.Post
			err := tx.Where("exchange_id = ?", id).Order("created_at asc, id asc").First(&first).Error
			if err != nil {
				return err
			}
			err = tx.Model(&first).Update("body", *changes.Body).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func createWithFirstPost(tx *gorm.DB, exchange *model.Exchange, body string) (*model.Post, error) {
	now := time.Now()
	exchange.PostsCount = 1
	exchange.LastPosterID = exchange.PosterID
	exchange.LastPostAt = now
	if err := tx.Omit(clause.Associations).Create(exchange).Error; err != nil {
		return nil, err
	}

	post := &model.Post{
		ExchangeID: exchange.ID,
		UserID:     exchange.PosterID,
		Body:       body,
		CreatedAt:  now,
	}
	if err := tx.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (s *ExchangeRepoImpl) page(query *gorm.DB, order string, offset, limit int) ([]*model.Exchange, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var exchanges []*model.Exchange
	err := query.
		Select("exchanges.*").
		Preload("Category").
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, 0, err
	}
	return exchanges, total, nil
}
