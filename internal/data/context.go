package data

// DataContext provides fetched GitHub data to the analytics and output layers.
type DataContext interface {
	Get(key DependencyKey) (any, bool)
}

// MapDataContext is a simple read-only map-based implementation of DataContext.
type MapDataContext struct {
	data map[DependencyKey]any
}

func NewMapDataContext(data map[DependencyKey]any) *MapDataContext {
	// A nil map is treated as an empty context.
	return &MapDataContext{data: data}
}

func (c *MapDataContext) Get(key DependencyKey) (any, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.data[key]
	return val, ok
}

// Lookup returns the value stored under key when it is present and of type T.
func Lookup[T any](dc DataContext, key DependencyKey) (T, bool) {
	var zero T
	if dc == nil {
		return zero, false
	}
	raw, ok := dc.Get(key)
	if !ok || raw == nil {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}
