package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// ADX represents the Average Directional Index indicator.
type ADX struct {
	period int
}

// NewADX creates a new ADX indicator with default configuration.
func NewADX() Indicator {
	return &ADX{
		period: 14,
	}
}

// Name returns the name of the indicator.
func (a *ADX) Name() types.IndicatorType {
	return types.IndicatorTypeADX
}

// Config configures the ADX indicator. Expected parameters: period (int).
func (a *ADX) Config(params ...any) error {
	if len(params) < 1 {
		return fmt.Errorf("Config expects at least 1 parameter: period (int)")
	}

	period, ok := params[0].(int)
	if !ok {
		return fmt.Errorf("invalid type for period parameter, expected int")
	}

	if period <= 0 {
		return fmt.Errorf("period must be a positive integer, got %d", period)
	}

	a.period = period

	return nil
}

// GetSignal reports trend strength. ADX measures strength, not direction,
// so the signal type is always no action.
func (a *ADX) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	adxValue, err := a.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   types.SignalTypeNoAction,
		Name:   string(a.Name()),
		Reason: fmt.Sprintf("ADX value=%.2f", adxValue),
		RawValue: map[string]float64{
			"adx": adxValue,
		},
		Symbol:    marketData.Symbol,
		Indicator: a.Name(),
	}, nil
}

// RawValue implements the Indicator interface.
func (a *ADX) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	// ADX smooths DI values, so it needs at least two full periods
	data, err := fetchWindow(ctx, symbol, currentTime, a.period*4, a.period*2)
	if err != nil {
		return 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	values := talib.Adx(highSeries(data), lowSeries(data), closeSeries(data), a.period)

	return values[len(values)-1], nil
}
