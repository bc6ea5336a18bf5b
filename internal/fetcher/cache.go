package fetcher

import "sync"

// Cache memoizes fetched dependencies for the lifetime of a Fetcher.
type Cache struct {
	data sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(key string) (any, bool) {
	return c.data.Load(key)
}

func (c *Cache) Set(key string, value any) {
	c.data.Store(key, value)
}

// Len counts cached entries.
func (c *Cache) Len() int {
	n := 0
	c.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
