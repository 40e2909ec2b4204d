// Package cache 提供字节块缓存抽象及其实现：本地 BigCache、分布式 Redis 与多级缓存。
// 核矩阵缓存以文本编码后的字节块形式存放于此。
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gykovacs/vessel-sub003/breaker"
	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/metrics"
	redis_pkg "github.com/gykovacs/vessel-sub003/redis"
	"github.com/gykovacs/vessel-sub003/xerrors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Cache 定义字节块缓存接口。未命中时 Get 返回 xerrors.ErrCacheMiss。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// IsMiss 判断错误是否为缓存未命中。
func IsMiss(err error) bool {
	return errors.Is(err, xerrors.ErrCacheMiss)
}

type cacheMetrics struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newCacheMetrics(m *metrics.Metrics) *cacheMetrics {
	if m == nil {
		return nil
	}
	return &cacheMetrics{
		hits: m.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "The total number of cache hits",
		}, []string{"prefix"}),
		misses: m.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "The total number of cache misses",
		}, []string{"prefix"}),
		duration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "The duration of cache operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"prefix", "operation"}),
	}
}

func (m *cacheMetrics) observe(prefix, op string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(prefix, op).Observe(time.Since(start).Seconds())
}

// RedisCache 使用 Redis 实现 Cache，所有操作经过熔断器保护。
type RedisCache struct {
	client  redis.Cmdable
	cleanup func()
	prefix  string
	cb      *breaker.Breaker
	metrics *cacheMetrics
}

// NewRedisCache 连接 Redis 并创建缓存。
func NewRedisCache(cfg config.RedisConfig, cbCfg config.CircuitBreakerConfig, m *metrics.Metrics, logger *logging.Logger) (*RedisCache, error) {
	client, cleanup, err := redis_pkg.NewClient(&cfg, m, logger)
	if err != nil {
		return nil, xerrors.ErrStoreUnavailable.WithCause(err, "redis %s", cfg.Addr)
	}
	c := NewRedisCacheWithClient(client, cbCfg, m)
	c.cleanup = cleanup
	return c, nil
}

// NewRedisCacheWithClient 基于已有客户端创建缓存，调用方负责关闭客户端。
func NewRedisCacheWithClient(client redis.Cmdable, cbCfg config.CircuitBreakerConfig, m *metrics.Metrics) *RedisCache {
	cb := breaker.NewBreaker(breaker.Settings{
		Name:         "redis-cache",
		Config:       cbCfg,
		FailureRatio: 0.6,
		MinRequests:  10,
		IsFailure:    func(err error) bool { return !IsMiss(err) },
	}, m)

	return &RedisCache{
		client:  client,
		cb:      cb,
		metrics: newCacheMetrics(m),
	}
}

// WithPrefix 返回共享底层客户端、带 key 前缀的副本。
// 副本不持有清理函数，关闭由原实例负责。
func (c *RedisCache) WithPrefix(prefix string) *RedisCache {
	return &RedisCache{
		client:  c.client,
		prefix:  prefix,
		cb:      c.cb,
		metrics: c.metrics,
	}
}

// buildKey 构建带有前缀的 key。
func (c *RedisCache) buildKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get 从缓存中获取字节块。
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	defer c.metrics.observe(c.prefix, "get", time.Now())

	fullKey := c.buildKey(key)

	return breaker.ExecuteTyped(c.cb, func() ([]byte, error) {
		data, err := c.client.Get(ctx, fullKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if c.metrics != nil {
					c.metrics.misses.WithLabelValues(c.prefix).Inc()
				}
				return nil, xerrors.ErrCacheMiss.With("redis key %s", fullKey)
			}
			return nil, xerrors.ErrStoreUnavailable.WithCause(err, "redis get %s", fullKey)
		}
		if c.metrics != nil {
			c.metrics.hits.WithLabelValues(c.prefix).Inc()
		}
		return data, nil
	})
}

// Set 写入字节块，expiration 为 0 表示永不过期。
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	defer c.metrics.observe(c.prefix, "set", time.Now())

	fullKey := c.buildKey(key)
	return c.cb.Execute(func() error {
		if err := c.client.Set(ctx, fullKey, value, expiration).Err(); err != nil {
			return xerrors.ErrStoreUnavailable.WithCause(err, "redis set %s", fullKey)
		}
		return nil
	})
}

// Delete 从缓存中删除值。
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	defer c.metrics.observe(c.prefix, "delete", time.Now())

	if len(keys) == 0 {
		return nil
	}
	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = c.buildKey(key)
	}

	return c.cb.Execute(func() error {
		return c.client.Del(ctx, fullKeys...).Err()
	})
}

// Exists 检查 key 是否存在。
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	defer c.metrics.observe(c.prefix, "exists", time.Now())

	fullKey := c.buildKey(key)
	return breaker.ExecuteTyped(c.cb, func() (bool, error) {
		n, err := c.client.Exists(ctx, fullKey).Result()
		if err != nil {
			return false, err
		}
		return n > 0, nil
	})
}

// Close 关闭 Redis 客户端。
func (c *RedisCache) Close() error {
	slog.Info("closing redis cache connection", "prefix", c.prefix)
	if c.cleanup != nil {
		c.cleanup()
	}
	return nil
}
