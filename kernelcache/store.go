package kernelcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/gykovacs/vessel-sub003/cache"
	"github.com/gykovacs/vessel-sub003/storage"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

// Key 标识一份缓存的 Gram 矩阵：样本数 N 与核函数的分辨率标签。
// Namespace 非空时作为名字前缀，用于隔离不同数据集。
type Key struct {
	N         int
	Tag       int
	Namespace string
}

// Name 返回缓存文件名，例如 kernel_cache_100_-1.data。
func (k Key) Name() string {
	name := fmt.Sprintf("kernel_cache_%d_%d.data", k.N, k.Tag)
	if k.Namespace == "" {
		return name
	}
	return path.Join(k.Namespace, name)
}

// Store 存取编码后的矩阵。未命中时 Load 返回满足 errors.Is(err, xerrors.ErrCacheMiss) 的错误。
type Store interface {
	Load(ctx context.Context, key Key) ([]byte, error)
	Save(ctx context.Context, key Key, data []byte) error
}

// MemoryStore 是基于 map 的 Store。
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[key.Name()]
	if !ok {
		return nil, xerrors.ErrCacheMiss.With("%s", key.Name())
	}
	return data, nil
}

func (s *MemoryStore) Save(_ context.Context, key Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key.Name()] = append([]byte(nil), data...)
	return nil
}

// Len 当前条目数。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// BlobStore 将矩阵存入字节块缓存（BigCache / Redis / 多级缓存）。
type BlobStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewBlobStore ttl 为 0 表示永不过期（BigCache 使用其全局 TTL）。
func NewBlobStore(c cache.Cache, ttl time.Duration) *BlobStore {
	return &BlobStore{cache: c, ttl: ttl}
}

func (s *BlobStore) Load(ctx context.Context, key Key) ([]byte, error) {
	return s.cache.Get(ctx, key.Name())
}

func (s *BlobStore) Save(ctx context.Context, key Key, data []byte) error {
	return s.cache.Set(ctx, key.Name(), data, s.ttl)
}

// ObjectStore 将矩阵存为对象存储中的文件（MinIO 或本地目录）。
type ObjectStore struct {
	storage storage.Storage
}

func NewObjectStore(s storage.Storage) *ObjectStore {
	return &ObjectStore{storage: s}
}

func (s *ObjectStore) Load(ctx context.Context, key Key) ([]byte, error) {
	rc, err := s.storage.Download(ctx, key.Name())
	if err != nil {
		if errors.Is(err, xerrors.ErrObjectNotFound) {
			return nil, xerrors.ErrCacheMiss.WithCause(err, "%s", key.Name())
		}
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ObjectStore) Save(ctx context.Context, key Key, data []byte) error {
	return s.storage.Upload(ctx, key.Name(), bytes.NewReader(data), int64(len(data)), "text/plain")
}
