package cache

type Cache interface {
	Reset()
}

// CacheV1 holds per-run scratch state for strategies. It is reset between
// backtest runs so state never leaks across data files.
type CacheV1 struct {
	data map[string]any
}

func NewCacheV1() Cache {
	return &CacheV1{
		data: make(map[string]any),
	}
}

// Reset implements cache.Cache.
func (c *CacheV1) Reset() {
	c.data = make(map[string]any)
}

// Set cache data by key.
func (c *CacheV1) Set(key string, value any) {
	c.data[key] = value
}

// Get cache data by key.
func (c *CacheV1) Get(key string) (any, bool) {
	value, ok := c.data[key]

	return value, ok
}
