package service

import (
	"Agora/internal/model"
	"Agora/internal/pkg/es"
	"Agora/internal/repository"
	"context"
	log "log/slog"
	"strings"
)

// SearchService 配置了 Elasticsearch 时走 ES, 失败或未配置时回退到数据库 LIKE.
// 分类 trusted 级联后由 SyncCategoryTrust 同步文档; 同步失败时 ES 的 trusted 会落后,
// 所以命中结果仍按库中当前值再过滤一次.
type SearchService interface {
	SearchExchanges(ctx context.Context, principal *model.User, query string, offset, limit int) ([]*model.Exchange, int64, error)
	SearchPosts(ctx context.Context, exchange *model.Exchange, query string, offset, limit int) ([]*model.Post, int64, error)
	IndexExchange(ctx context.Context, exchange *model.Exchange) error
	IndexPost(ctx context.Context, post *model.Post) error
	SyncCategoryTrust(ctx context.Context, categoryID uint64, trusted bool) error
}

type searchServiceImpl struct {
	searchRepo   es.ExchangeSearchRepo
	exchangeRepo repository.ExchangeRepo
	postRepo     repository.PostRepo
	policy       TrustPolicy
}

// NewSearchService searchRepo 可为 nil
func NewSearchService(searchRepo es.ExchangeSearchRepo, exchangeRepo repository.ExchangeRepo, postRepo repository.PostRepo, policy TrustPolicy) SearchService {
	return &searchServiceImpl{
		searchRepo:   searchRepo,
		exchangeRepo: exchangeRepo,
		postRepo:     postRepo,
		policy:       policy,
	}
}

func (s *searchServiceImpl) SearchExchanges(ctx context.Context, principal *model.User, query string, offset, limit int) ([]*model.Exchange, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, ErrNoQuery
	}
	includeTrusted := s.policy.CanView(principal, true)

	if s.searchRepo != nil {
		ids, total, err := s.searchRepo.SearchExchanges(ctx, query, includeTrusted, offset, limit)
		if err == nil {
			exchanges, err := s.exchangeRepo.GetExchangesByIds(ctx, ids)
			if err != nil {
				return nil, 0, err
			}
			visible := make([]*model.Exchange, 0, len(exchanges))
			for _, e := range orderByIDs(exchanges, ids) {
				if e.IsDiscussion() && s.policy.CanView(principal, e.Trusted) {
					visible = append(visible, e)
				}
			}
			// 本页被过滤掉的命中不计入总数
			total -= int64(len(ids) - len(visible))
			total = max(total, int64(offset+len(visible)))
			return visible, total, nil
		}
		log.WarnContext(ctx, "es exchange search failed, falling back to db", "err", err)
	}

	return s.exchangeRepo.SearchTitles(ctx, query, includeTrusted, offset, limit)
}

func (s *searchServiceImpl) SearchPosts(ctx context.Context, exchange *model.Exchange, query string, offset, limit int) ([]*model.Post, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, ErrNoQuery
	}

	if s.searchRepo != nil {
		ids, total, err := s.searchRepo.SearchPosts(ctx, query, exchange.ID, offset, limit)
		if err == nil {
			posts, err := s.postRepo.GetPostsByIds(ctx, ids)
			if err != nil {
				return nil, 0, err
			}
			return posts, total, nil
		}
		log.WarnContext(ctx, "es post search failed, falling back to db", "err", err)
	}

	return s.postRepo.SearchPosts(ctx, exchange.ID, query, offset, limit)
}

func (s *searchServiceImpl) IndexExchange(ctx context.Context, exchange *model.Exchange) error {
	if s.searchRepo == nil {
		return nil
	}
	doc := &es.ExchangeES{
		ID:         exchange.ID,
		Kind:       string(exchange.Kind),
		Title:      exchange.Title,
		Trusted:    exchange.Trusted,
		PosterID:   exchange.PosterID,
		LastPostAt: exchange.LastPostAt,
	}
	if exchange.CategoryID != nil {
		doc.CategoryID = *exchange.CategoryID
	}
	return s.searchRepo.IndexExchange(ctx, doc)
}

func (s *searchServiceImpl) IndexPost(ctx context.Context, post *model.Post) error {
	if s.searchRepo == nil {
		return nil
	}
	return s.searchRepo.IndexPost(ctx, &es.PostES{
		ID:         post.ID,
		ExchangeID: post.ExchangeID,
		UserID:     post.UserID,
		Body:       post.Body,
		CreatedAt:  post.CreatedAt,
	})
}

func (s *searchServiceImpl) SyncCategoryTrust(ctx context.Context, categoryID uint64, trusted bool) error {
	if s.searchRepo == nil {
		return nil
	}
	return s.searchRepo.UpdateCategoryTrusted(ctx, categoryID, trusted)
}

// orderByIDs 按 ES 返回的相关度顺序重排
func orderByIDs(exchanges []*model.Exchange, ids []uint64) []*model.Exchange {
	byID := make(map[uint64]*model.Exchange, len(exchanges))
	for _, e := range exchanges {
		byID[e.ID] = e
	}
	ordered := make([]*model.Exchange, 0, len(exchanges))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered
}
