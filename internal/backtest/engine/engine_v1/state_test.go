package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/internal/types"
)

type BacktestStateTestSuite struct {
	suite.Suite
	state *BacktestState
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) SetupSuite() {
	state, err := NewBacktestState(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.state = state
}

func (suite *BacktestStateTestSuite) TearDownSuite() {
	suite.Require().NoError(suite.state.Close())
}

func (suite *BacktestStateTestSuite) SetupTest() {
	suite.Require().NoError(suite.state.Initialize())
}

func (suite *BacktestStateTestSuite) TearDownTest() {
	suite.Require().NoError(suite.state.Cleanup())
}

func (suite *BacktestStateTestSuite) order(side types.PurchaseType, positionType types.PositionType, qty, price, fee float64, at time.Time) types.Order {
	return types.Order{
		OrderID:      uuid.NewString(),
		Symbol:       "BTC-USD",
		Side:         side,
		Quantity:     qty,
		Price:        price,
		Timestamp:    at,
		IsCompleted:  true,
		Status:       types.OrderStatusFilled,
		Reason:       types.Reason{Reason: types.OrderReasonStrategy, Message: "test"},
		StrategyName: "test_strategy",
		Fee:          fee,
		PositionType: positionType,
	}
}

func (suite *BacktestStateTestSuite) TestLongRoundTrip() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	results, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 1, start),
	})
	suite.Require().NoError(err)
	suite.Require().Len(results, 1)
	suite.Assert().True(results[0].IsNewPosition)
	suite.Assert().Equal(0.0, results[0].Trade.PnL)

	position, err := suite.state.GetPosition("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal(1.0, position.LongQuantity())
	// Entry fee is embedded in the average entry price.
	suite.Assert().Equal(101.0, position.GetAverageLongEntryPrice())

	results, err = suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeSell, types.PositionTypeLong, 1, 110, 1, start.Add(2*time.Hour)),
	})
	suite.Require().NoError(err)
	suite.Require().Len(results, 1)
	suite.Assert().False(results[0].IsNewPosition)
	// 1 * (110 - 101) - 1 closing fee
	suite.Assert().InDelta(8.0, results[0].Trade.PnL, 1e-9)

	position, err = suite.state.GetPosition("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().True(position.IsFlat())
}

func (suite *BacktestStateTestSuite) TestShortRoundTrip() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeSell, types.PositionTypeShort, 2, 100, 2, start),
	})
	suite.Require().NoError(err)

	position, err := suite.state.GetPosition("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal(2.0, position.ShortQuantity())
	// (200 - 2) / 2, short entry price is net of fees
	suite.Assert().Equal(99.0, position.GetAverageShortEntryPrice())

	results, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeShort, 2, 90, 1, start.Add(time.Hour)),
	})
	suite.Require().NoError(err)
	suite.Require().Len(results, 1)
	// 2 * (99 - 90) - 1 closing fee
	suite.Assert().InDelta(17.0, results[0].Trade.PnL, 1e-9)

	position, err = suite.state.GetPosition("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().True(position.IsFlat())
}

func (suite *BacktestStateTestSuite) TestBothDirectionsTrackedSeparately() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 3, 100, 0, start),
		suite.order(types.PurchaseTypeSell, types.PositionTypeShort, 1, 105, 0, start.Add(time.Hour)),
	})
	suite.Require().NoError(err)

	position, err := suite.state.GetPosition("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal(3.0, position.LongQuantity())
	suite.Assert().Equal(1.0, position.ShortQuantity())
	suite.Assert().False(position.IsFlat())
}

func (suite *BacktestStateTestSuite) TestGetPositionUnknownSymbolIsFlat() {
	position, err := suite.state.GetPosition("ETH-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal("ETH-USD", position.Symbol)
	suite.Assert().True(position.IsFlat())
}

func (suite *BacktestStateTestSuite) TestGetAllPositionsSkipsFlat() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 0, start),
		suite.order(types.PurchaseTypeSell, types.PositionTypeLong, 1, 105, 0, start.Add(time.Hour)),
	})
	suite.Require().NoError(err)

	positions, err := suite.state.GetAllPositions()
	suite.Require().NoError(err)
	suite.Assert().Empty(positions)
}

func (suite *BacktestStateTestSuite) TestGetOrderById() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	order := suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 0, start)

	_, err := suite.state.Update([]types.Order{order})
	suite.Require().NoError(err)

	found, err := suite.state.GetOrderById(order.OrderID)
	suite.Require().NoError(err)
	suite.Require().True(found.IsSome())
	suite.Assert().Equal(order.OrderID, found.Unwrap().OrderID)
	suite.Assert().Equal(types.PositionTypeLong, found.Unwrap().PositionType)

	missing, err := suite.state.GetOrderById("no-such-order")
	suite.Require().NoError(err)
	suite.Assert().True(missing.IsNone())
}

func (suite *BacktestStateTestSuite) TestTradeResultCountsOnlyClosingFills() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 0, start),
		suite.order(types.PurchaseTypeSell, types.PositionTypeLong, 1, 110, 0, start.Add(time.Hour)),
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 0, start.Add(2*time.Hour)),
		suite.order(types.PurchaseTypeSell, types.PositionTypeLong, 1, 95, 0, start.Add(3*time.Hour)),
	})
	suite.Require().NoError(err)

	result, err := suite.state.calculateTradeResult("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal(2, result.NumberOfTrades)
	suite.Assert().Equal(1, result.NumberOfWinningTrades)
	suite.Assert().Equal(1, result.NumberOfLosingTrades)
	suite.Assert().InDelta(0.5, result.WinRate, 1e-9)
}

func (suite *BacktestStateTestSuite) TestHoldingTime() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 0, start),
		suite.order(types.PurchaseTypeSell, types.PositionTypeLong, 1, 110, 0, start.Add(4*time.Hour)),
	})
	suite.Require().NoError(err)

	holding, err := suite.state.calculateTradeHoldingTime("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal(4, holding.Min)
	suite.Assert().Equal(4, holding.Max)
	suite.Assert().Equal(4, holding.Avg)
}

func (suite *BacktestStateTestSuite) TestTotalFees() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 1.5, start),
		suite.order(types.PurchaseTypeSell, types.PositionTypeLong, 1, 110, 0.5, start.Add(time.Hour)),
	})
	suite.Require().NoError(err)

	fees, err := suite.state.calculateTotalFees("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().InDelta(2.0, fees, 1e-9)
}

func (suite *BacktestStateTestSuite) TestUnrealizedPnL() {
	long := types.Position{
		Symbol:              "BTC-USD",
		TotalLongInQuantity: 2,
		TotalLongInAmount:   200,
		TotalLongInFee:      2,
	}
	// 2 * (110 - 101)
	suite.Assert().InDelta(18.0, unrealizedPnL(long, 110), 1e-9)

	short := types.Position{
		Symbol:               "BTC-USD",
		TotalShortInQuantity: 2,
		TotalShortInAmount:   200,
		TotalShortInFee:      2,
	}
	// 2 * (99 - 90)
	suite.Assert().InDelta(18.0, unrealizedPnL(short, 90), 1e-9)
}

func (suite *BacktestStateTestSuite) TestLastTradePrice() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 0, start),
		suite.order(types.PurchaseTypeSell, types.PositionTypeLong, 1, 120, 0, start.Add(time.Hour)),
	})
	suite.Require().NoError(err)

	price, err := suite.state.lastTradePrice("BTC-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal(120.0, price)

	price, err = suite.state.lastTradePrice("ETH-USD")
	suite.Require().NoError(err)
	suite.Assert().Equal(0.0, price)
}

func (suite *BacktestStateTestSuite) TestCleanupResetsTables() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := suite.state.Update([]types.Order{
		suite.order(types.PurchaseTypeBuy, types.PositionTypeLong, 1, 100, 0, start),
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.state.Cleanup())

	trades, err := suite.state.GetAllTrades()
	suite.Require().NoError(err)
	suite.Assert().Empty(trades)
}
