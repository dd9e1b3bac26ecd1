package types

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"github.com/uljio/stratbench/pkg/errors"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) validExecuteOrder() ExecuteOrder {
	return ExecuteOrder{
		Symbol:    "BTC-USD",
		Side:      PurchaseTypeBuy,
		OrderType: OrderTypeMarket,
		Reason: Reason{
			Reason:  OrderReasonStrategy,
			Message: "entry signal",
		},
		Price:        26000.0,
		StrategyName: "test_strategy",
		Quantity:     1.5,
		PositionType: PositionTypeLong,
	}
}

func (suite *OrderTestSuite) TestExecuteOrderValid() {
	order := suite.validExecuteOrder()
	suite.NoError(order.Validate())
}

func (suite *OrderTestSuite) TestExecuteOrderMissingSymbol() {
	order := suite.validExecuteOrder()
	order.Symbol = ""

	err := order.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidExecuteOrder))
}

func (suite *OrderTestSuite) TestExecuteOrderZeroQuantity() {
	order := suite.validExecuteOrder()
	order.Quantity = 0

	suite.Error(order.Validate())
}

func (suite *OrderTestSuite) TestExecuteOrderNegativePrice() {
	order := suite.validExecuteOrder()
	order.Price = -1

	suite.Error(order.Validate())
}

func (suite *OrderTestSuite) TestExecuteOrderInvalidSide() {
	order := suite.validExecuteOrder()
	order.Side = "HOLD"

	suite.Error(order.Validate())
}

func (suite *OrderTestSuite) TestExecuteOrderWithBrackets() {
	order := suite.validExecuteOrder()
	order.TakeProfit = optional.Some(ExecuteOrderBracket{
		Side:      PurchaseTypeSell,
		OrderType: OrderTypeLimit,
		Price:     28000.0,
	})
	order.StopLoss = optional.Some(ExecuteOrderBracket{
		Side:      PurchaseTypeSell,
		OrderType: OrderTypeMarket,
		Price:     25000.0,
	})

	suite.NoError(order.Validate())
}

func (suite *OrderTestSuite) TestExecuteOrderInvalidTakeProfit() {
	order := suite.validExecuteOrder()
	order.TakeProfit = optional.Some(ExecuteOrderBracket{
		Side:      PurchaseTypeSell,
		OrderType: OrderTypeLimit,
		Price:     0,
	})

	err := order.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTakeProfit))
}

func (suite *OrderTestSuite) TestExecuteOrderInvalidStopLoss() {
	order := suite.validExecuteOrder()
	order.StopLoss = optional.Some(ExecuteOrderBracket{
		Side:      "",
		OrderType: OrderTypeMarket,
		Price:     25000.0,
	})

	err := order.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStopLoss))
}
