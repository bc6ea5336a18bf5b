package fetcher

import (
	"golang.org/x/sync/singleflight"
)

// Group dedupes concurrent fetches of the same flight key.
type Group struct {
	g singleflight.Group
}

func (g *Group) Do(key string, fn func() (any, error)) (any, error, bool) {
	return g.g.Do(key, fn)
}
