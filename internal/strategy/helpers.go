package strategy

import (
	"math"

	"github.com/google/uuid"
	"github.com/uljio/stratbench/internal/types"
)

// anyNaN reports whether any of the given values is NaN.
func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}

// markSignal records a chart mark for the signal. Marker failures never block trading.
func markSignal(ctx RuntimeContext, strategyName string, data types.MarketData, signalType types.SignalType, message string) {
	if ctx.Marker == nil {
		return
	}

	signal := types.Signal{
		Time:   data.Time,
		Type:   signalType,
		Name:   strategyName,
		Reason: message,
		Symbol: data.Symbol,
	}

	_ = ctx.Marker.Mark(data, signal, message)
}

// marketOrder builds a market ExecuteOrder for the current bar.
func marketOrder(strategyName string, data types.MarketData, side types.PurchaseType, positionType types.PositionType, quantity float64, reason string, message string) types.ExecuteOrder {
	return types.ExecuteOrder{
		ID:           uuid.NewString(),
		Symbol:       data.Symbol,
		Side:         side,
		OrderType:    types.OrderTypeMarket,
		Price:        data.Close,
		Quantity:     quantity,
		PositionType: positionType,
		StrategyName: strategyName,
		Reason: types.Reason{
			Reason:  reason,
			Message: message,
		},
	}
}
