package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

// l1TTL caps how long a value read from redis stays in process memory.
const l1TTL = 30 * time.Second

// MultiLevelCache reads through an in-process map to redis. With no redis
// configured it degrades to the memory tier alone.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	metrics *CacheMetrics

	janitorMu   sync.Mutex
	stopJanitor context.CancelFunc
	janitorDone chan struct{}
}

func NewMultiLevelCache(redisCache *RedisCache) *MultiLevelCache {
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		metrics: NewCacheMetrics(),
	}
}

func NewMemoryOnlyCache(l1 *MemoryCache) *MultiLevelCache {
	return &MultiLevelCache{l1: l1, metrics: NewCacheMetrics()}
}

// StartJanitor sweeps expired L1 entries every interval until Close.
// Calling it again while a janitor runs is a no-op.
func (c *MultiLevelCache) StartJanitor(interval time.Duration) {
	c.janitorMu.Lock()
	defer c.janitorMu.Unlock()
	if c.stopJanitor != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stopJanitor = cancel
	c.janitorDone = done

	go func() {
		defer close(done)
		c.l1.RunJanitor(ctx, interval)
	}()
}

func (c *MultiLevelCache) L1() *MemoryCache {
	return c.l1
}

func (c *MultiLevelCache) Metrics() *CacheMetrics {
	return c.metrics
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.metrics.RecordSet()
	c.l1.Set(key, value, minTTL(ttl, l1TTL))

	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, value, ttl); err != nil {
			c.metrics.RecordError()
			return err
		}
	}

	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if value, found := c.l1.Get(key); found {
		c.metrics.RecordL1Hit()
		return copyValue(value, dest)
	}

	if c.l2 != nil {
		err := c.l2.Get(ctx, key, dest)
		switch {
		case err == nil:
			c.metrics.RecordL2Hit()
			c.l1.Set(key, reflect.ValueOf(dest).Elem().Interface(), l1TTL)
			return nil
		case err == ErrCacheMiss:
			c.metrics.RecordMiss()
		default:
			c.metrics.RecordError()
		}
		return err
	}

	c.metrics.RecordMiss()
	return ErrCacheMiss
}

func (c *MultiLevelCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if c.l2 != nil {
		ok, err := c.l2.SetNX(ctx, key, value, ttl)
		if err != nil {
			c.metrics.RecordError()
		}
		return ok, err
	}
	return c.l1.SetNX(key, value, ttl), nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.metrics.RecordDelete()
	c.l1.Delete(key)

	if c.l2 != nil {
		return c.l2.Delete(ctx, key)
	}

	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	c.metrics.RecordDelete()
	c.l1.DeletePattern(pattern)

	if c.l2 != nil {
		return c.l2.DeletePattern(ctx, pattern)
	}

	return nil
}

func (c *MultiLevelCache) Exists(ctx context.Context, key string) (bool, error) {
	if _, found := c.l1.Get(key); found {
		return true, nil
	}

	if c.l2 != nil {
		return c.l2.Exists(ctx, key)
	}

	return false, nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(),
		"metrics":  c.metrics.GetStats(),
		"hit_rate": c.metrics.HitRate(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}

	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 != nil {
		return c.l2.Health(ctx)
	}

	return nil
}

func (c *MultiLevelCache) Close() error {
	c.janitorMu.Lock()
	if c.stopJanitor != nil {
		c.stopJanitor()
		<-c.janitorDone
		c.stopJanitor = nil
	}
	c.janitorMu.Unlock()

	if c.l2 != nil {
		return c.l2.Close()
	}

	return nil
}

func minTTL(ttl, limit time.Duration) time.Duration {
	if ttl <= 0 || ttl > limit {
		return limit
	}
	return ttl
}

func copyValue(src, dest interface{}) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("destination must be a pointer, got %T", dest)
	}

	if destValue.IsNil() {
		return fmt.Errorf("destination pointer is nil")
	}

	srcValue := reflect.ValueOf(src)
	if srcValue.IsValid() && srcValue.Type().AssignableTo(destValue.Elem().Type()) {
		destValue.Elem().Set(srcValue)
		return nil
	}

	return copyValueViaJSON(src, dest)
}

func copyValueViaJSON(src, dest interface{}) error {
	jsonData, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to marshal source value: %w", err)
	}

	if err := json.Unmarshal(jsonData, dest); err != nil {
		return fmt.Errorf("failed to unmarshal to destination: %w", err)
	}

	return nil
}
