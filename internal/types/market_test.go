package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func (suite *MarketTestSuite) TestMarketDataStruct() {
	now := time.Now()
	data := MarketData{
		Id:     "bar-1",
		Symbol: "BTC-USD",
		Time:   now,
		Open:   26500.0,
		High:   27000.0,
		Low:    26000.0,
		Close:  26750.0,
		Volume: 100.5,
	}

	suite.Equal("bar-1", data.Id)
	suite.Equal("BTC-USD", data.Symbol)
	suite.Equal(now, data.Time)
	suite.Equal(26500.0, data.Open)
	suite.Equal(27000.0, data.High)
	suite.Equal(26000.0, data.Low)
	suite.Equal(26750.0, data.Close)
	suite.Equal(100.5, data.Volume)
	suite.True(data.FundingRate.IsNone())
}

func (suite *MarketTestSuite) TestMarketDataAveragePrice() {
	data := MarketData{
		High: 110.0,
		Low:  90.0,
	}

	suite.Equal(100.0, data.AveragePrice())
}

func (suite *MarketTestSuite) TestMarketDataFundingRate() {
	data := MarketData{
		Symbol:      "BTCUSDT",
		FundingRate: optional.Some(-0.0001),
	}

	suite.True(data.FundingRate.IsSome())
	suite.InDelta(-0.0001, data.FundingRate.Unwrap(), 1e-12)
}

func (suite *MarketTestSuite) TestMarketDataOHLCVRelationships() {
	// High should be >= all other prices, Low should be <= all other prices
	data := MarketData{
		Id:     "bar-1",
		Symbol: "ETH-USD",
		Time:   time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC),
		Open:   1850.0,
		High:   1875.0,
		Low:    1840.0,
		Close:  1860.0,
		Volume: 5000.0,
	}

	suite.GreaterOrEqual(data.High, data.Open)
	suite.GreaterOrEqual(data.High, data.Close)
	suite.LessOrEqual(data.Low, data.Open)
	suite.LessOrEqual(data.Low, data.Close)
}
