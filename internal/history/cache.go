package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/guttosm/candlefeed/internal/domain/models"
	"github.com/guttosm/candlefeed/internal/logger"
)

// CacheStore is the subset of the Redis client the cache needs.
type CacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider serves pages from Redis and falls back to the wrapped
// provider on a miss. Concurrent misses for the same key share one fetch,
// which is detached from any single caller's cancellation and bounded by
// the fetch timeout instead. Cache failures are logged and never surface to
// the caller.
type CachedProvider struct {
	next    Provider
	store   CacheStore
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
}

// CacheOption configures a CachedProvider.
type CacheOption func(*CachedProvider)

// WithSharedFetchTimeout bounds the fetch shared by concurrent misses.
func WithSharedFetchTimeout(d time.Duration) CacheOption {
	return func(c *CachedProvider) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCachedProvider wraps next with a Redis cache of the given TTL.
func NewCachedProvider(next Provider, store CacheStore, ttl time.Duration, opts ...CacheOption) *CachedProvider {
	c := &CachedProvider{next: next, store: store, ttl: ttl, timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey is the Redis key a page is stored under.
func CacheKey(req PageRequest) string {
	return fmt.Sprintf("candles:%s:%s:%d:%d", req.Symbol, req.Timeframe, req.Limit, req.EndTime)
}

// FetchCandles implements Provider.
func (c *CachedProvider) FetchCandles(ctx context.Context, req PageRequest) ([]models.Candle, error) {
	req = req.Normalize()
	key := CacheKey(req)

	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		candles, err := c.next.FetchCandles(fetchCtx, req)
		if err != nil {
			return nil, err
		}
		c.save(fetchCtx, key, candles)
		return candles, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	candles := res.Val.([]models.Candle)
	out := make([]models.Candle, len(candles))
	copy(out, candles)
	return out, nil
}

func (c *CachedProvider) lookup(ctx context.Context, key string) ([]models.Candle, bool) {
	raw, err := c.store.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn().Err(err).Str("key", key).Msg("candle cache read failed")
		}
		return nil, false
	}
	var candles []models.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		logger.L().Warn().Err(err).Str("key", key).Msg("candle cache entry undecodable")
		return nil, false
	}
	return candles, true
}

func (c *CachedProvider) save(ctx context.Context, key string, candles []models.Candle) {
	payload, err := json.Marshal(candles)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.L().Warn().Err(err).Str("key", key).Msg("candle cache write failed")
	}
}
