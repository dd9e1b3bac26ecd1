package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uljio/stratbench/internal/types"
)

func TestATRConstantRange(t *testing.T) {
	// makeBars emits a constant high-low range of 2
	bars := makeBars(60, func(i int) float64 { return 100 })
	ctx := testContext(bars)
	current := lastBar(bars)

	atr := NewATR()
	value, err := atr.RawValue(current.Symbol, current.Time, ctx)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, value, 1e-6)
}

func TestATRSignalIsNoAction(t *testing.T) {
	bars := makeBars(60, func(i int) float64 { return 100 + float64(i) })
	ctx := testContext(bars)
	current := lastBar(bars)

	atr := NewATR()
	signal, err := atr.GetSignal(current, ctx)
	assert.NoError(t, err)
	assert.Equal(t, types.SignalTypeNoAction, signal.Type)
	assert.Equal(t, types.IndicatorTypeATR, signal.Indicator)
}

func TestATRConfig(t *testing.T) {
	atr := NewATR().(*ATR)

	assert.NoError(t, atr.Config(7))
	assert.Equal(t, 7, atr.period)
	assert.Error(t, atr.Config(-1))
}
