package datasource

import (
	"fmt"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/uljio/stratbench/internal/types"
)

// CachedDataSource wraps a DataSource and caches repeated queries within the
// same bar. Indicators tend to request overlapping trailing windows on every
// bar, so read-through caching cuts most of the query load.
type CachedDataSource struct {
	underlying           DataSource
	previousDataCache    map[string][]types.MarketData
	previousDataErrCache map[string]error
	rangeCache           map[string][]types.MarketData
	rangeErrCache        map[string]error
	mu                   sync.RWMutex
}

// NewCachedDataSource creates a new CachedDataSource wrapping the given DataSource.
func NewCachedDataSource(underlying DataSource) *CachedDataSource {
	return &CachedDataSource{
		underlying:           underlying,
		previousDataCache:    make(map[string][]types.MarketData),
		previousDataErrCache: make(map[string]error),
		rangeCache:           make(map[string][]types.MarketData),
		rangeErrCache:        make(map[string]error),
	}
}

// ClearCache clears all cached data. Call this when moving to a new bar.
func (c *CachedDataSource) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previousDataCache = make(map[string][]types.MarketData)
	c.previousDataErrCache = make(map[string]error)
	c.rangeCache = make(map[string][]types.MarketData)
	c.rangeErrCache = make(map[string]error)
}

// Initialize implements DataSource.
func (c *CachedDataSource) Initialize(path string) error {
	c.ClearCache()

	return c.underlying.Initialize(path)
}

// ReadAll implements DataSource.
func (c *CachedDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return c.underlying.ReadAll(start, end)
}

// GetRange implements DataSource with caching.
func (c *CachedDataSource) GetRange(start time.Time, end time.Time, interval optional.Option[Interval]) ([]types.MarketData, error) {
	key := c.buildRangeKey(start, end, interval)

	c.mu.RLock()
	if data, ok := c.rangeCache[key]; ok {
		err := c.rangeErrCache[key]
		c.mu.RUnlock()

		return data, err
	}
	c.mu.RUnlock()

	data, err := c.underlying.GetRange(start, end, interval)

	c.mu.Lock()
	c.rangeCache[key] = data
	c.rangeErrCache[key] = err
	c.mu.Unlock()

	return data, err
}

// GetPreviousNumberOfDataPoints implements DataSource with caching.
func (c *CachedDataSource) GetPreviousNumberOfDataPoints(end time.Time, symbol string, count int) ([]types.MarketData, error) {
	key := fmt.Sprintf("%d|%s|%d", end.UnixNano(), symbol, count)

	c.mu.RLock()
	if data, ok := c.previousDataCache[key]; ok {
		err := c.previousDataErrCache[key]
		c.mu.RUnlock()

		return data, err
	}
	c.mu.RUnlock()

	data, err := c.underlying.GetPreviousNumberOfDataPoints(end, symbol, count)

	c.mu.Lock()
	c.previousDataCache[key] = data
	c.previousDataErrCache[key] = err
	c.mu.Unlock()

	return data, err
}

// ReadLastData implements DataSource.
func (c *CachedDataSource) ReadLastData(symbol string) (types.MarketData, error) {
	return c.underlying.ReadLastData(symbol)
}

// ReadFirstData implements DataSource.
func (c *CachedDataSource) ReadFirstData(symbol string) (types.MarketData, error) {
	return c.underlying.ReadFirstData(symbol)
}

// GetMarketData implements DataSource.
func (c *CachedDataSource) GetMarketData(symbol string, timestamp time.Time) (types.MarketData, error) {
	return c.underlying.GetMarketData(symbol, timestamp)
}

// GetAllSymbols implements DataSource.
func (c *CachedDataSource) GetAllSymbols() ([]string, error) {
	return c.underlying.GetAllSymbols()
}

// ExecuteSQL implements DataSource.
func (c *CachedDataSource) ExecuteSQL(query string, params ...interface{}) ([]SQLResult, error) {
	return c.underlying.ExecuteSQL(query, params...)
}

// Count implements DataSource.
func (c *CachedDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	return c.underlying.Count(start, end)
}

// Close implements DataSource.
func (c *CachedDataSource) Close() error {
	c.ClearCache()

	return c.underlying.Close()
}

func (c *CachedDataSource) buildRangeKey(start time.Time, end time.Time, interval optional.Option[Interval]) string {
	intervalStr := "none"
	if interval.IsSome() {
		intervalStr = string(interval.Unwrap())
	}

	return fmt.Sprintf("%d|%d|%s", start.UnixNano(), end.UnixNano(), intervalStr)
}
