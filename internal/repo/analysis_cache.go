package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	logx "github.com/echolag-barista/server/pkg/logger"
)

type RedisAnalysisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisAnalysisCache(rdb redis.Cmdable, ttl time.Duration) *RedisAnalysisCache {
	return &RedisAnalysisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisAnalysisCache) analysisKey(key string) string {
	return fmt.Sprintf("analysis:%s", key)
}

func (r *RedisAnalysisCache) Get(ctx context.Context, key string) (*model.AnalysisResponse, error) {
	k := r.analysisKey(key)

	raw, err := r.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", k).Msg("failed to load analysis from redis")
		return nil, errx.WrapRedis(err)
	}

	var resp model.AnalysisResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logx.Warn().Err(err).Str("key", k).Msg("dropping undecodable cached analysis")
		_ = r.rdb.Del(ctx, k).Err()
		return nil, nil
	}
	return &resp, nil
}

func (r *RedisAnalysisCache) Set(ctx context.Context, key string, resp *model.AnalysisResponse) error {
	if resp == nil {
		return nil
	}
	if resp.Fallback {
		return fmt.Errorf("refusing to cache a fallback analysis")
	}
	b, err := json.Marshal(resp)
	if err != nil {
		logx.Error().Err(err).Msg("failed to marshal analysis")
		return fmt.Errorf("marshal analysis: %w", err)
	}
	k := r.analysisKey(key)
	if err := r.rdb.Set(ctx, k, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to store analysis in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.AnalysisCache = (*RedisAnalysisCache)(nil)
