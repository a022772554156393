package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"reverse-geo/internal/logger"
	"reverse-geo/internal/metrics"
	"reverse-geo/internal/revgeo"
)

// 文档注释：Redis 二级缓存
// 背景：多实例部署时共享热点坐标的地址结果；进程内 LRU 由 revgeo.Locator 负责。
// 约束：rc 为 nil 时全部操作为空操作；键为 "revgeo:" 加 revgeo.CacheKey；只缓存命中结果，Redis 故障不影响主流程。
type redisCache struct {
	rc   *redis.Client
	ttl  time.Duration
	prec uint
}

func newRedisCache(rc *redis.Client, ttl time.Duration, prec uint) *redisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if prec == 0 || prec > 12 {
		prec = 12
	}
	return &redisCache{rc: rc, ttl: ttl, prec: prec}
}

func (c *redisCache) enabled() bool { return c != nil && c.rc != nil }

func (c *redisCache) key(pt revgeo.Point) string {
	return "revgeo:" + revgeo.CacheKey(pt, c.prec)
}

func (c *redisCache) get(ctx context.Context, pt revgeo.Point) (*addressResponse, bool) {
	if !c.enabled() {
		return nil, false
	}
	s, err := c.rc.Get(ctx, c.key(pt)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L().Debug("redis_get_error", "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	var out addressResponse
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		metrics.RedisMissesTotal.Inc()
		return nil, false
	}
	metrics.RedisHitsTotal.Inc()
	return &out, true
}

func (c *redisCache) set(ctx context.Context, pt revgeo.Point, a *addressResponse) {
	if !c.enabled() || a == nil {
		return
	}
	b, _ := json.Marshal(a)
	if err := c.rc.Set(ctx, c.key(pt), b, c.ttl).Err(); err != nil {
		logger.L().Debug("redis_set_error", "err", err)
	}
}
