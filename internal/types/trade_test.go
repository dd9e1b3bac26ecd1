package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestPositionQuantities() {
	position := Position{
		Symbol:                "BTC-USD",
		TotalLongInQuantity:   3.0,
		TotalLongOutQuantity:  1.0,
		TotalShortInQuantity:  2.0,
		TotalShortOutQuantity: 2.0,
	}

	suite.Equal(2.0, position.LongQuantity())
	suite.Equal(0.0, position.ShortQuantity())
	suite.False(position.IsFlat())
}

func (suite *TradeTestSuite) TestPositionIsFlat() {
	position := Position{Symbol: "BTC-USD"}
	suite.True(position.IsFlat())

	position.TotalShortInQuantity = 1.0
	suite.False(position.IsFlat())
}

func (suite *TradeTestSuite) TestAverageLongEntryPriceIncludesFees() {
	position := Position{
		TotalLongInQuantity: 10.0,
		TotalLongInAmount:   1000.0,
		TotalLongInFee:      10.0,
	}

	// (1000 + 10) / 10
	suite.InDelta(101.0, position.GetAverageLongEntryPrice(), 1e-9)
}

func (suite *TradeTestSuite) TestAverageShortEntryPriceNetsFees() {
	position := Position{
		TotalShortInQuantity: 10.0,
		TotalShortInAmount:   1000.0,
		TotalShortInFee:      10.0,
	}

	// (1000 - 10) / 10
	suite.InDelta(99.0, position.GetAverageShortEntryPrice(), 1e-9)
}

func (suite *TradeTestSuite) TestAverageEntryPriceEmptyPosition() {
	position := Position{}

	suite.Equal(0.0, position.GetAverageLongEntryPrice())
	suite.Equal(0.0, position.GetAverageShortEntryPrice())
}

func (suite *TradeTestSuite) TestTradeStruct() {
	executedAt := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	trade := Trade{
		Order: Order{
			OrderID:      "order-1",
			Symbol:       "BTC-USD",
			Side:         PurchaseTypeSell,
			Quantity:     1.0,
			Price:        27000.0,
			PositionType: PositionTypeLong,
		},
		ExecutedAt:    executedAt,
		ExecutedQty:   1.0,
		ExecutedPrice: 27000.0,
		Fee:           54.0,
		PnL:           946.0,
	}

	suite.Equal("order-1", trade.Order.OrderID)
	suite.Equal(executedAt, trade.ExecutedAt)
	suite.Equal(946.0, trade.PnL)
}
