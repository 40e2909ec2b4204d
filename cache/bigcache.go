package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/xerrors"

	"github.com/allegro/bigcache/v3"
)

// BigCache 实现了 `Cache` 接口，使用 `allegro/bigcache` 作为底层存储。
// 所有条目共享全局 TTL，Set 的 expiration 参数被忽略。
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 创建并返回一个新的 BigCache 实例。
// LifeWindow 为 0 时使用 24 小时；HardMaxCacheSize 单位为 MB，0 表示不限制。
func NewBigCache(cfg config.BigCacheConfig) (*BigCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 24 * time.Hour
	}
	c := bigcache.DefaultConfig(life)
	if cfg.Shards > 0 {
		c.Shards = cfg.Shards
	}
	if cfg.MaxEntrySize > 0 {
		c.MaxEntrySize = cfg.MaxEntrySize
	}
	c.HardMaxCacheSize = cfg.HardMaxCacheSize
	c.CleanWindow = cfg.CleanWindow
	c.Verbose = cfg.Verbose

	cache, err := bigcache.New(context.Background(), c)
	if err != nil {
		return nil, xerrors.WrapInternal(err, "init bigcache")
	}

	return &BigCache{cache: cache}, nil
}

// Get 从 BigCache 中获取字节块。
func (c *BigCache) Get(_ context.Context, key string) ([]byte, error) {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, xerrors.ErrCacheMiss.With("bigcache key %s", key)
		}
		return nil, err
	}
	return data, nil
}

// Set 写入字节块。
func (c *BigCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return c.cache.Set(key, value)
}

// Delete 删除一个或多个键，键不存在不视为错误。
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Exists 检查 BigCache 中是否存在指定的键。
func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	return false, err
}

// Close 关闭 BigCache 实例，释放其占用的资源。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
