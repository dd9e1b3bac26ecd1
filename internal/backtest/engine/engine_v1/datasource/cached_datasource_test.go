package datasource

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"github.com/uljio/stratbench/internal/types"
)

// countingDataSource records how many times each query method was invoked.
type countingDataSource struct {
	previousDataCalls int
	rangeCalls        int
	data              []types.MarketData
}

func (c *countingDataSource) Initialize(path string) error { return nil }

func (c *countingDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		for _, d := range c.data {
			if !yield(d, nil) {
				return
			}
		}
	}
}

func (c *countingDataSource) GetRange(start time.Time, end time.Time, interval optional.Option[Interval]) ([]types.MarketData, error) {
	c.rangeCalls++

	return c.data, nil
}

func (c *countingDataSource) GetPreviousNumberOfDataPoints(end time.Time, symbol string, count int) ([]types.MarketData, error) {
	c.previousDataCalls++

	return c.data, nil
}

func (c *countingDataSource) ReadLastData(symbol string) (types.MarketData, error) {
	return c.data[len(c.data)-1], nil
}

func (c *countingDataSource) ReadFirstData(symbol string) (types.MarketData, error) {
	return c.data[0], nil
}

func (c *countingDataSource) GetMarketData(symbol string, timestamp time.Time) (types.MarketData, error) {
	return c.data[0], nil
}

func (c *countingDataSource) GetAllSymbols() ([]string, error) { return []string{"BTC-USD"}, nil }

func (c *countingDataSource) ExecuteSQL(query string, params ...interface{}) ([]SQLResult, error) {
	return nil, nil
}

func (c *countingDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	return len(c.data), nil
}

func (c *countingDataSource) Close() error { return nil }

type CachedDataSourceTestSuite struct {
	suite.Suite
	underlying *countingDataSource
	cached     *CachedDataSource
}

func TestCachedDataSourceSuite(t *testing.T) {
	suite.Run(t, new(CachedDataSourceTestSuite))
}

func (suite *CachedDataSourceTestSuite) SetupTest() {
	suite.underlying = &countingDataSource{
		data: []types.MarketData{
			{Symbol: "BTC-USD", Time: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100},
			{Symbol: "BTC-USD", Time: time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC), Close: 101},
		},
	}
	suite.cached = NewCachedDataSource(suite.underlying)
}

func (suite *CachedDataSourceTestSuite) TestPreviousDataPointsCached() {
	end := time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		data, err := suite.cached.GetPreviousNumberOfDataPoints(end, "BTC-USD", 2)
		suite.Require().NoError(err)
		suite.Len(data, 2)
	}

	suite.Equal(1, suite.underlying.previousDataCalls)

	// Different window misses the cache
	_, err := suite.cached.GetPreviousNumberOfDataPoints(end, "BTC-USD", 3)
	suite.Require().NoError(err)
	suite.Equal(2, suite.underlying.previousDataCalls)
}

func (suite *CachedDataSourceTestSuite) TestRangeCached() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := suite.cached.GetRange(start, end, optional.None[Interval]())
		suite.Require().NoError(err)
	}

	suite.Equal(1, suite.underlying.rangeCalls)

	// An interval variant is a distinct cache entry
	_, err := suite.cached.GetRange(start, end, optional.Some(Interval1h))
	suite.Require().NoError(err)
	suite.Equal(2, suite.underlying.rangeCalls)
}

func (suite *CachedDataSourceTestSuite) TestClearCache() {
	end := time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC)

	_, err := suite.cached.GetPreviousNumberOfDataPoints(end, "BTC-USD", 2)
	suite.Require().NoError(err)

	suite.cached.ClearCache()

	_, err = suite.cached.GetPreviousNumberOfDataPoints(end, "BTC-USD", 2)
	suite.Require().NoError(err)
	suite.Equal(2, suite.underlying.previousDataCalls)
}
