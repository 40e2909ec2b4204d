package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
	fail  error
}

func newMapCache() *mapCache { return &mapCache{items: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	v, ok := c.items[key]
	if !ok {
		return nil, xerrors.ErrCacheMiss.With("%s", key)
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.items[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *mapCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

func (c *mapCache) Close() error { return nil }

func TestBigCache(t *testing.T) {
	ctx := context.Background()
	bc, err := NewBigCache(config.BigCacheConfig{Shards: 8})
	if err != nil {
		t.Fatalf("NewBigCache: %v", err)
	}
	defer bc.Close()

	if _, err := bc.Get(ctx, "k"); !IsMiss(err) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := bc.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := bc.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get: %q %v", got, err)
	}
	if ok, _ := bc.Exists(ctx, "k"); !ok {
		t.Error("Exists should be true")
	}
	if err := bc.Delete(ctx, "k", "missing"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if ok, _ := bc.Exists(ctx, "k"); ok {
		t.Error("key should be gone")
	}
}

func TestMultiLevelBackfillsL1(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newMapCache(), newMapCache()
	c := NewMultiLevelCache(l1, l2, nil)

	l2.items["k"] = []byte("from-l2")
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "from-l2" {
		t.Fatalf("Get: %q %v", got, err)
	}
	if string(l1.items["k"]) != "from-l2" {
		t.Error("L1 was not backfilled")
	}
}

func TestMultiLevelMissAndErrors(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newMapCache(), newMapCache()
	c := NewMultiLevelCache(l1, l2, nil)

	if _, err := c.Get(ctx, "none"); !IsMiss(err) {
		t.Errorf("expected miss, got %v", err)
	}

	l2.fail = errors.New("down")
	if _, err := c.Get(ctx, "none"); err == nil || IsMiss(err) {
		t.Errorf("L2 failure must not look like a miss: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err == nil {
		t.Error("Set must fail when L2 is down")
	}
	if _, ok := l1.items["k"]; ok {
		t.Error("L1 must not be written when L2 write fails")
	}
}

func TestMultiLevelSetWritesBoth(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newMapCache(), newMapCache()
	c := NewMultiLevelCache(l1, l2, nil)
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if string(l1.items["k"]) != "v" || string(l2.items["k"]) != "v" {
		t.Error("value missing from a level")
	}
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Error("Exists should be true")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("key should be deleted from both levels")
	}
}
