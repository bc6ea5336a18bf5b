package insights

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v81/github"
	"github.com/jellydator/ttlcache/v3"
)

// Cache stores serialized insights. A miss is (nil, false, nil); errors mean
// the backend is unavailable and callers treat them as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Close() error
}

const cacheKeyPrefix = "ghexplorer:insights:"

// CacheKey identifies an insight for the repository state it was generated
// from; a new push produces a new key.
func CacheKey(repo *github.Repository) string {
	pushed := "never"
	if t := repo.GetPushedAt(); !t.IsZero() {
		pushed = t.UTC().Format(time.RFC3339)
	}
	return cacheKeyPrefix + strings.ToLower(repo.GetFullName()) + ":" + pushed
}

// MemoryCacheCapacity bounds the entries a MemoryCache holds; the least
// recently used entry is evicted first.
const MemoryCacheCapacity = 1024

// MemoryCache is a process-local Cache. Entries expire ttl after they were
// stored; reads do not extend them.
type MemoryCache struct {
	entries   *ttlcache.Cache[string, []byte]
	closeOnce sync.Once
}

func NewMemoryCache() *MemoryCache {
	entries := ttlcache.New[string, []byte](
		ttlcache.WithCapacity[string, []byte](MemoryCacheCapacity),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go entries.Start()
	return &MemoryCache{entries: entries}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := c.entries.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Set stores data; ttl <= 0 keeps it until it is evicted or the process exits.
func (c *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c.entries.Set(key, append([]byte(nil), data...), ttl)
	return nil
}

// Close stops the expiry loop.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(c.entries.Stop)
	return nil
}

var _ Cache = (*MemoryCache)(nil)
