package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RateCache keeps the last fetched exchange rate per currency pair.
type RateCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewRateCache creates a RateCache whose entries live for ttl.
func NewRateCache(redis *RedisClient, ttl time.Duration) *RateCache {
	return &RateCache{redis: redis, ttl: ttl}
}

func (c *RateCache) key(base, quote string) string {
	return fmt.Sprintf("fx:%s:%s", base, quote)
}

// Get returns the cached rate or ErrCacheMiss.
func (c *RateCache) Get(ctx context.Context, base, quote string) (float64, error) {
	raw, err := c.redis.Get(ctx, c.key(base, quote))
	if err != nil {
		return 0, err
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt cached rate %q: %w", raw, err)
	}
	return rate, nil
}

// Set stores the rate.
func (c *RateCache) Set(ctx context.Context, base, quote string, rate float64) error {
	return c.redis.Set(ctx, c.key(base, quote), strconv.FormatFloat(rate, 'f', -1, 64), c.ttl)
}
