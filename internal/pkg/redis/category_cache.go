package redis

import (
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// CategoryCache 缓存按 Position 排好序的完整分类列表, 权限过滤在读取后进行.
// 列表与版本号分开存放, 每次失效版本号加一
type CategoryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCategoryCache(rdb *redis.Client, ttl time.Duration) *CategoryCache {
	return &CategoryCache{rdb: rdb, ttl: ttl}
}

func (s *CategoryCache) Get(ctx context.Context) ([]*model.Category, int64, bool, error) {
	var listCmd *redis.StringCmd
	var versionCmd *redis.StringCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		versionCmd = pipe.Get(ctx, consts.CategoryVersionKey)
		listCmd = pipe.Get(ctx, consts.CategoryListKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}

	version, err := readVersion(versionCmd)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := listCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, false, nil
		}
		return nil, 0, false, err
	}
	var categories []*model.Category
	if err = json.Unmarshal(raw, &categories); err != nil {
		// 脏数据直接丢弃
		_ = s.rdb.Del(ctx, consts.CategoryListKey).Err()
		return nil, version, false, nil
	}
	return categories, version, true, nil
}

// Set 版本号已被 Invalidate 推进时放弃写入
func (s *CategoryCache) Set(ctx context.Context, categories []*model.Category, version int64) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return err
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(tx.Get(ctx, consts.CategoryVersionKey))
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, consts.CategoryListKey, raw, s.ttl)
			return nil
		})
		return err
	}, consts.CategoryVersionKey)
	if errors.Is(err, redis.TxFailedErr) {
		// 并发失效, 由下一次读取回填
		return nil
	}
	return err
}

func (s *CategoryCache) Invalidate(ctx context.Context) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, consts.CategoryVersionKey)
		pipe.Del(ctx, consts.CategoryListKey)
		return nil
	})
	return err
}

func readVersion(cmd *redis.StringCmd) (int64, error) {
	version, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}
