package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/xerrors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MultiLevelCache 实现多级缓存 (L1: 本地, L2: 分布式)
type MultiLevelCache struct {
	l1     Cache
	l2     Cache
	tracer trace.Tracer
	logger *logging.Logger
}

func NewMultiLevelCache(l1, l2 Cache, logger *logging.Logger) *MultiLevelCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &MultiLevelCache{
		l1:     l1,
		l2:     l2,
		tracer: otel.Tracer("github.com/gykovacs/vessel-sub003/cache"),
		logger: logger,
	}
}

func (c *MultiLevelCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "MultiLevelCache.Get", trace.WithAttributes(
		attribute.String("cache.key", key),
	))
	defer span.End()

	if data, err := c.l1.Get(ctx, key); err == nil {
		span.SetAttributes(attribute.String("cache.hit", "L1"))
		return data, nil
	}

	data, err := c.l2.Get(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.String("cache.hit", "L2"))
		// 回填 L1
		if err := c.l1.Set(ctx, key, data, 0); err != nil {
			c.logger.ErrorContext(ctx, "failed to backfill L1 cache", "key", key, "error", err)
		}
		return data, nil
	}

	if IsMiss(err) {
		span.SetAttributes(attribute.String("cache.hit", "miss"))
		return nil, xerrors.ErrCacheMiss.With("multi-level key %s", key)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "L2 get failed")
	return nil, err
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	ctx, span := c.tracer.Start(ctx, "MultiLevelCache.Set", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.bytes", len(value)),
	))
	defer span.End()

	// 先写 L2 (分布式)
	if err := c.l2.Set(ctx, key, value, expiration); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set L2")
		return xerrors.Wrap(err, xerrors.ErrUnavailable, "failed to set L2")
	}

	// 再写 L1 (本地)
	if err := c.l1.Set(ctx, key, value, expiration); err != nil {
		c.logger.ErrorContext(ctx, "failed to set L1 cache", "key", key, "error", err)
	}
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	if err := c.l1.Delete(ctx, keys...); err != nil {
		c.logger.ErrorContext(ctx, "failed to delete from L1 cache", "keys", keys, "error", err)
	}
	return c.l2.Delete(ctx, keys...)
}

func (c *MultiLevelCache) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := c.l1.Exists(ctx, key)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to check L1 cache existence", "key", key, "error", err)
	}
	if exists {
		return true, nil
	}
	return c.l2.Exists(ctx, key)
}

func (c *MultiLevelCache) Close() error {
	return errors.Join(c.l1.Close(), c.l2.Close())
}
