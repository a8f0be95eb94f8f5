package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// l1Promotion bounds how long a value read from L2 lives in L1.
const l1Promotion = 5 * time.Minute

// MultiLevelCache reads L1 first and falls back to an optional L2. L2 calls
// go through a circuit breaker; while it is open the cache behaves as L1 only.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      Cache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	log     *zap.Logger
}

func NewMultiLevelCache(l1 *MemoryCache, l2 Cache, breaker *CircuitBreaker, log *zap.Logger) *MultiLevelCache {
	if l1 == nil {
		l1 = NewMemoryCache(0)
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MultiLevelCache{
		l1:      l1,
		l2:      l2,
		breaker: breaker,
		metrics: NewCacheMetrics(),
		log:     log,
	}
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	c.metrics.RecordSet()

	c.onL2("set", key, func() error { return c.l2.Set(ctx, key, value, ttl) })
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := c.l1.Get(ctx, key, dest)
	if err == nil {
		c.metrics.RecordHit()
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	if c.l2 != nil {
		l2Err := ErrCacheMiss
		c.onL2("get", key, func() error {
			l2Err = c.l2.Get(ctx, key, dest)
			if errors.Is(l2Err, ErrCacheMiss) {
				return nil
			}
			return l2Err
		})
		if l2Err == nil {
			c.metrics.RecordHit()
			c.metrics.RecordL2Hit()
			if err := c.l1.Set(ctx, key, dest, l1Promotion); err != nil {
				c.log.Debug("l1 promotion failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}

	c.metrics.RecordMiss()
	return ErrCacheMiss
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	c.metrics.RecordDelete()

	c.onL2("delete", key, func() error { return c.l2.Delete(ctx, key) })
	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	if err := c.l1.DeletePattern(ctx, pattern); err != nil {
		return err
	}
	c.metrics.RecordDelete()

	c.onL2("delete_pattern", pattern, func() error { return c.l2.DeletePattern(ctx, pattern) })
	return nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":      c.l1.Stats(),
		"metrics": c.metrics.Snapshot(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
		stats["breaker"] = c.breaker.GetStats()
	}
	return stats
}

func (c *MultiLevelCache) Metrics() *CacheMetrics {
	return c.metrics
}

// Health reports L2 reachability. An L1-only cache is always healthy.
func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 == nil {
		return nil
	}
	if c.breaker.GetState() == CircuitBreakerOpen {
		return ErrCircuitBreakerOpen
	}
	return c.l2.Health(ctx)
}

func (c *MultiLevelCache) Close() error {
	_ = c.l1.Close()
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}

// onL2 runs fn against L2 through the breaker. Failures are logged and counted
// but never surface to the caller.
func (c *MultiLevelCache) onL2(op, key string, fn func() error) {
	if c.l2 == nil {
		return
	}
	err := c.breaker.Execute(fn)
	switch {
	case err == nil:
	case errors.Is(err, ErrCircuitBreakerOpen):
		c.log.Debug("l2 skipped, breaker open", zap.String("op", op), zap.String("key", key))
	default:
		c.metrics.RecordL2Error()
		c.log.Warn("l2 cache call failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
	}
}
