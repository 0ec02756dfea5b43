package repository

import (
	"Agora/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExchangeViewRepo interface {
	MarkViewed(ctx context.Context, userID, exchangeID uint64, postID *uint64, postIndex int) error
	GetView(ctx context.Context, userID, exchangeID uint64) (*model.ExchangeView, error)
	GetViews(ctx context.Context, userID uint64, exchangeIDs []uint64) (map[uint64]*model.ExchangeView, error)
}

type ExchangeViewRepoImpl struct {
	db *gorm.DB
}

func NewExchangeViewRepo(db *gorm.DB) ExchangeViewRepo {
	return &ExchangeViewRepoImpl{db: db}
}

// MarkViewed 水位只前进: 首次插入, 之后仅当新 index 更大时才更新.
// 条件写在 UPDATE 的 WHERE 中, 并发请求不会互相覆盖出更小的值.
func (s *ExchangeViewRepoImpl) MarkViewed(ctx context.Context, userID, exchangeID uint64, postID *uint64, postIndex int) error {
	db := s.db.WithContext(ctx)

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "exchange_id"}},
		DoNothing: true,
	}).Create(&model.ExchangeView{
		UserID:     userID,
		ExchangeID: exchangeID,
		PostID:     postID,
		PostIndex:  postIndex,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	return db.Model(&model.ExchangeView{}).
		Where("user_id = ? AND exchange_id = ? AND post_index < ?", userID, exchangeID, postIndex).
		Updates(map[string]interface{}{
			"post_index": postIndex,
			"post_id":    postID,
		}).Error
}

func (s *ExchangeViewRepoImpl) GetView(ctx context.Context, userID, exchangeID uint64) (*model.ExchangeView, error) {
	var view model.ExchangeView
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND exchange_id = ?", userID, exchangeID).
		First(&view)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &view, nil
}

func (s *ExchangeViewRepoImpl) GetViews(ctx context.Context, userID uint64, exchangeIDs []uint64) (map[uint64]*model.ExchangeView, error) {
	res := make(map[uint64]*model.ExchangeView)
	if len(exchangeIDs) == 0 {
		return res, nil
	}
	var views []*model.ExchangeView
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND exchange_id IN ?", userID, exchangeIDs).
		Find(&views).Error
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		res[v.ExchangeID] = v
	}
	return res, nil
}
