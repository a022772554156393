package api

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverse-geo/internal/revgeo"
)

// testRedis 需要 REDIS_TEST_ADDR（host:port），未设置或不可达时跳过
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		t.Skipf("redis %s unreachable: %v", addr, err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestRedisCache_Disabled(t *testing.T) {
	c := newRedisCache(nil, 0, 0)
	assert.False(t, c.enabled())
	c.set(context.Background(), revgeo.Point{Lon: 1, Lat: 2}, &addressResponse{StreetID: "x"})
	_, ok := c.get(context.Background(), revgeo.Point{Lon: 1, Lat: 2})
	assert.False(t, ok)
	assert.Equal(t, "revgeo:"+revgeo.CacheKey(revgeo.Point{Lon: 1, Lat: 2}, 12), c.key(revgeo.Point{Lon: 1, Lat: 2}))
}

func TestRedisCache_RoundTrip(t *testing.T) {
	rc := testRedis(t)
	ctx := context.Background()
	c := newRedisCache(rc, time.Minute, 12)
	pt := revgeo.Point{Lon: 116.1, Lat: 39.05}
	near := revgeo.Point{Lon: 116.1 + 1e-8, Lat: 39.05}
	t.Cleanup(func() { rc.Del(ctx, c.key(pt), c.key(near)) })

	_, ok := c.get(ctx, pt)
	require.False(t, ok)

	want := &addressResponse{Province: "北京市", City: "市辖区", District: "东城区", Street: "东华门街道", StreetID: "110101001"}
	c.set(ctx, pt, want)
	got, ok := c.get(ctx, pt)
	require.True(t, ok)
	assert.Equal(t, want, got)

	ttl, err := rc.TTL(ctx, c.key(pt)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, ok = c.get(ctx, near)
	assert.False(t, ok, "neighbouring coordinate has its own key")

	c.set(ctx, near, nil)
	_, ok = c.get(ctx, near)
	assert.False(t, ok, "misses are not cached")

	require.NoError(t, rc.Set(ctx, c.key(near), "{broken", time.Minute).Err())
	_, ok = c.get(ctx, near)
	assert.False(t, ok, "undecodable value is a miss")
}
