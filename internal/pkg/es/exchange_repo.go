package es

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/conflicts"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/operator"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/refresh"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

// MaxSearchDepth 深分页限制
const MaxSearchDepth = 10000

type ExchangeSearchRepo interface {
	SearchExchanges(ctx context.Context, query string, includeTrusted bool, from, size int) ([]uint64, int64, error)
	SearchPosts(ctx context.Context, query string, exchangeID uint64, from, size int) ([]uint64, int64, error)
	IndexExchange(ctx context.Context, doc *ExchangeES) error
	IndexPost(ctx context.Context, doc *PostES) error
	UpdateCategoryTrusted(ctx context.Context, categoryID uint64, trusted bool) error
}

type ExchangeSearchRepoImpl struct {
	client        *elasticsearch.TypedClient
	exchangeIndex string
	postIndex     string
}

func NewExchangeSearchRepo(client *elasticsearch.TypedClient, exchangeIndex, postIndex string) ExchangeSearchRepo {
	return &ExchangeSearchRepoImpl{client: client, exchangeIndex: exchangeIndex, postIndex: postIndex}
}

// SearchExchanges 标题检索, 只返回讨论; 未受信用户额外过滤掉受信讨论
func (s *ExchangeSearchRepoImpl) SearchExchanges(ctx context.Context, query string, includeTrusted bool, from, size int) ([]uint64, int64, error) {
	if from >= MaxSearchDepth {
		return []uint64{}, 0, nil
	}

	filter := []types.Query{{
		Term: map[string]types.TermQuery{"kind": {Value: "discussion"}},
	}}
	if !includeTrusted {
		filter = append(filter, types.Query{
			Term: map[string]types.TermQuery{"trusted": {Value: false}},
		})
	}

	req := s.client.Search().
		Index(s.exchangeIndex).
		Query(&types.Query{Bool: &types.BoolQuery{
			Must: []types.Query{{
				Match: map[string]types.MatchQuery{
					"title": {Query: query, Operator: &operator.And},
				},
			}},
			Filter: filter,
		}}).
		From(from).
		Size(size)

	return s.executeIDSearch(ctx, req)
}

// SearchPosts 在单个 exchange 内按正文检索, 按时间顺序返回
func (s *ExchangeSearchRepoImpl) SearchPosts(ctx context.Context, query string, exchangeID uint64, from, size int) ([]uint64, int64, error) {
	if from >= MaxSearchDepth {
		return []uint64{}, 0, nil
	}

	req := s.client.Search().
		Index(s.postIndex).
		Query(&types.Query{Bool: &types.BoolQuery{
			Must: []types.Query{{
				Match: map[string]types.MatchQuery{
					"body": {Query: query, Operator: &operator.And},
				},
			}},
			Filter: []types.Query{{
				Term: map[string]types.TermQuery{"exchange_id": {Value: exchangeID}},
			}},
		}}).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"created_at": {Order: &sortorder.Asc},
		}}).
		From(from).
		Size(size)

	return s.executeIDSearch(ctx, req)
}

func (s *ExchangeSearchRepoImpl) IndexExchange(ctx context.Context, doc *ExchangeES) error {
	_, err := s.client.Index(s.exchangeIndex).
		Id(strconv.FormatUint(doc.ID, 10)).
		Document(doc).
		Refresh(refresh.False).
		Do(ctx)
	return ignoreConflict(err)
}

func (s *ExchangeSearchRepoImpl) IndexPost(ctx context.Context, doc *PostES) error {
	_, err := s.client.Index(s.postIndex).
		Id(strconv.FormatUint(doc.ID, 10)).
		Document(doc).
		Refresh(refresh.False).
		Do(ctx)
	return ignoreConflict(err)
}

// UpdateCategoryTrusted 分类 trusted 级联之后把该分类下的文档一起改掉
func (s *ExchangeSearchRepoImpl) UpdateCategoryTrusted(ctx context.Context, categoryID uint64, trusted bool) error {
	trustedJSON, _ := json.Marshal(trusted)
	scriptSource := "ctx._source.trusted = params.trusted"

	resp, err := s.client.UpdateByQuery(s.exchangeIndex).
		Query(&types.Query{
			Term: map[string]types.TermQuery{
				"category_id": {Value: categoryID},
			},
		}).
		Script(&types.Script{
			Source: &scriptSource,
			Params: map[string]json.RawMessage{"trusted": trustedJSON},
		}).
		Conflicts(conflicts.Proceed).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("exchange index: update category trusted: %w", err)
	}
	if len(resp.Failures) != 0 {
		return fmt.Errorf("exchange index: update category trusted has %d failures", len(resp.Failures))
	}
	return nil
}

func (s *ExchangeSearchRepoImpl) executeIDSearch(ctx context.Context, req *search.Search) ([]uint64, int64, error) {
	req.Source_(&types.SourceFilter{Includes: []string{"id"}})

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if resp.Hits.Total != nil {
		total = resp.Hits.Total.Value
	}

	ids := make([]uint64, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var doc struct {
			ID uint64 `json:"id"`
		}
		if err = json.Unmarshal(hit.Source_, &doc); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, total, nil
}

func ignoreConflict(err error) error {
	if err == nil {
		return nil
	}
	var e *types.ElasticsearchError
	if errors.As(err, &e) && e.Status == ConflictCode {
		return nil
	}
	return err
}
