package service

import (
	"Agora/internal/model"
	"Agora/internal/repository"
	"context"
)

// ReadTracker 每个用户在每个 exchange 上的已读水位
type ReadTracker interface {
	MarkViewed(ctx context.Context, user *model.User, exchange *model.Exchange, lastPost *model.Post, lastIndex int) error
	MarkAsRead(ctx context.Context, user *model.User, exchange *model.Exchange) error
	UnreadCount(ctx context.Context, user *model.User, exchange *model.Exchange) (int, error)
	UnreadCounts(ctx context.Context, user *model.User, exchanges []*model.Exchange) (map[uint64]int, error)
	LastIndex(ctx context.Context, user *model.User, exchange *model.Exchange) (int, bool, error)
}

type readTrackerImpl struct {
	viewRepo repository.ExchangeViewRepo
	postRepo repository.PostRepo
}

func NewReadTracker(viewRepo repository.ExchangeViewRepo, postRepo repository.PostRepo) ReadTracker {
	return &readTrackerImpl{viewRepo: viewRepo, postRepo: postRepo}
}

// MarkViewed lastIndex 为已看过的帖子数, 夹到 [0, PostsCount]; 比已有水位小或相等时不变. 匿名用户不记录
func (s *readTrackerImpl) MarkViewed(ctx context.Context, user *model.User, exchange *model.Exchange, lastPost *model.Post, lastIndex int) error {
	if user == nil || exchange == nil {
		return nil
	}
	lastIndex = max(0, min(lastIndex, exchange.PostsCount))
	var postID *uint64
	if lastPost != nil {
		id := lastPost.ID
		postID = &id
	}
	return s.viewRepo.MarkViewed(ctx, user.ID, exchange.ID, postID, lastIndex)
}

func (s *readTrackerImpl) MarkAsRead(ctx context.Context, user *model.User, exchange *model.Exchange) error {
	if user == nil || exchange == nil {
		return nil
	}
	last, err := s.postRepo.GetLastPost(ctx, exchange.ID)
	if err != nil {
		return err
	}
	return s.MarkViewed(ctx, user, exchange, last, exchange.PostsCount)
}

func (s *readTrackerImpl) UnreadCount(ctx context.Context, user *model.User, exchange *model.Exchange) (int, error) {
	idx, _, err := s.LastIndex(ctx, user, exchange)
	if err != nil {
		return 0, err
	}
	return unread(exchange, idx), nil
}

func (s *readTrackerImpl) UnreadCounts(ctx context.Context, user *model.User, exchanges []*model.Exchange) (map[uint64]int, error) {
	res := make(map[uint64]int, len(exchanges))
	if user == nil {
		for _, e := range exchanges {
			res[e.ID] = unread(e, 0)
		}
		return res, nil
	}

	ids := make([]uint64, 0, len(exchanges))
	for _, e := range exchanges {
		ids = append(ids, e.ID)
	}
	views, err := s.viewRepo.GetViews(ctx, user.ID, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range exchanges {
		idx := 0
		if v, ok := views[e.ID]; ok {
			idx = v.PostIndex
		}
		res[e.ID] = unread(e, idx)
	}
	return res, nil
}

// LastIndex 没有水位时返回 (0, false)
func (s *readTrackerImpl) LastIndex(ctx context.Context, user *model.User, exchange *model.Exchange) (int, bool, error) {
	if user == nil || exchange == nil {
		return 0, false, nil
	}
	view, err := s.viewRepo.GetView(ctx, user.ID, exchange.ID)
	if err != nil {
		return 0, false, err
	}
	if view == nil {
		return 0, false, nil
	}
	return view.PostIndex, true, nil
}

func unread(exchange *model.Exchange, idx int) int {
	if n := exchange.PostsCount - idx; n > 0 {
		return n
	}
	return 0
}
