package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOBVRisingSeries(t *testing.T) {
	// Every bar closes higher, so OBV accumulates all volume
	bars := makeBars(60, func(i int) float64 { return 100 + float64(i) })
	ctx := testContext(bars)
	current := lastBar(bars)

	obv := NewOBV().(*OBV)
	series, err := obv.Series(current.Symbol, current.Time, ctx)
	assert.NoError(t, err)
	assert.NotEmpty(t, series)

	for i := 1; i < len(series); i++ {
		assert.GreaterOrEqual(t, series[i], series[i-1])
	}
}

func TestOBVFallingSeries(t *testing.T) {
	bars := makeBars(60, func(i int) float64 { return 200 - float64(i) })
	ctx := testContext(bars)
	current := lastBar(bars)

	obv := NewOBV()
	value, err := obv.RawValue(current.Symbol, current.Time, ctx)
	assert.NoError(t, err)
	assert.Negative(t, value)
}

func TestOBVConfig(t *testing.T) {
	obv := NewOBV().(*OBV)

	assert.NoError(t, obv.Config(30))
	assert.Equal(t, 30, obv.window)
	assert.Error(t, obv.Config(1))
}
