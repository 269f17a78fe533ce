package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "forecast", "1", "30")
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return Forecast{ProductID: 1, HorizonDays: 30, ModelName: ModelName}, nil
	}

	var first Forecast
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, int64(1), first.ProductID)

	var second Forecast
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls, "second fetch must hit the cache")
	require.Equal(t, first, second)
}

func TestCacheBumpChangesKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "forecast", "1", "30")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "forecast", "1", "30")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheNilClientFallsThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "forecast", "9")
	require.NoError(t, err)
	require.Equal(t, "forecast:9", key)

	calls := 0
	var out Forecast
	loader := func(context.Context) (interface{}, error) {
		calls++
		return Forecast{ProductID: 9}, nil
	}
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 2, calls, "nil cache always invokes the loader")
	require.NoError(t, cache.Bump(ctx))
}
