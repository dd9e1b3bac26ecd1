package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uljio/stratbench/internal/types"
)

func trendBars(slope float64) []types.MarketData {
	bars := makeBars(260, func(i int) float64 {
		if slope > 0 {
			return 100 + slope*float64(i)
		}
		return 200 + slope*float64(i)
	})
	bars[259].Volume = 2000

	return bars
}

func TestHolisticDecompositionLongEntry(t *testing.T) {
	bars := trendBars(0.2)
	ts := newFakeTradingSystem(10000)
	runtime := newRuntime(t, HolisticDecompositionName, bars, ts)

	assert.NoError(t, runtime.ProcessData(lastBar(bars)))

	assert.Len(t, ts.placed, 1)
	order := ts.placed[0]
	assert.Equal(t, types.PurchaseTypeBuy, order.Side)
	assert.Equal(t, types.PositionTypeLong, order.PositionType)
	// equity 10000, risk 1%, stop distance 1.5 * ATR of 2
	assert.Equal(t, 33.0, order.Quantity)
}

func TestHolisticDecompositionShortEntry(t *testing.T) {
	bars := trendBars(-0.2)
	ts := newFakeTradingSystem(10000)
	runtime := newRuntime(t, HolisticDecompositionName, bars, ts)

	assert.NoError(t, runtime.ProcessData(lastBar(bars)))

	assert.Len(t, ts.placed, 1)
	order := ts.placed[0]
	assert.Equal(t, types.PurchaseTypeSell, order.Side)
	assert.Equal(t, types.PositionTypeShort, order.PositionType)
}

func TestHolisticDecompositionRequiresVolumePush(t *testing.T) {
	bars := trendBars(0.2)
	bars[259].Volume = 1000

	ts := newFakeTradingSystem(10000)
	runtime := newRuntime(t, HolisticDecompositionName, bars, ts)

	assert.NoError(t, runtime.ProcessData(lastBar(bars)))

	assert.Empty(t, ts.placed)
}

func TestHolisticDecompositionLongStop(t *testing.T) {
	bars := trendBars(0.2)
	ts := newFakeTradingSystem(10000)
	// Entry far above the market so the fixed stop is breached
	ts.setLongPosition(33, 200)
	runtime := newRuntime(t, HolisticDecompositionName, bars, ts)

	assert.NoError(t, runtime.ProcessData(lastBar(bars)))

	assert.Equal(t, []string{types.OrderReasonStopLoss}, ts.closes)
	assert.Empty(t, ts.placed)
}

func TestHolisticDecompositionLongTarget(t *testing.T) {
	bars := trendBars(0.2)
	ts := newFakeTradingSystem(10000)
	// Last close of 151.8 clears the target at entry plus three stop distances
	ts.setLongPosition(33, 100)
	runtime := newRuntime(t, HolisticDecompositionName, bars, ts)

	assert.NoError(t, runtime.ProcessData(lastBar(bars)))

	assert.Equal(t, []string{types.OrderReasonTakeProfit}, ts.closes)
}

func TestHolisticDecompositionShortStop(t *testing.T) {
	bars := trendBars(-0.2)
	ts := newFakeTradingSystem(10000)
	ts.setShortPosition(33, 100)
	runtime := newRuntime(t, HolisticDecompositionName, bars, ts)

	// Last close of 148.2 is far above the short stop at 100 plus 1.5 ATR
	assert.NoError(t, runtime.ProcessData(lastBar(bars)))

	assert.Equal(t, []string{types.OrderReasonStopLoss}, ts.closes)
}
