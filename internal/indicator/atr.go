package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// ATR represents the Average True Range indicator.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator with default configuration.
func NewATR() Indicator {
	return &ATR{
		period: 14,
	}
}

// Name returns the name of the indicator.
func (a *ATR) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Config configures the ATR indicator. Expected parameters: period (int).
func (a *ATR) Config(params ...any) error {
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

// GetSignal reports the current ATR. Volatility alone carries no direction,
// so the signal type is always no action.
func (a *ATR) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	atrValue, err := a.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   types.SignalTypeNoAction,
		Name:   string(a.Name()),
		Reason: fmt.Sprintf("ATR value=%.4f", atrValue),
		RawValue: map[string]float64{
			"atr": atrValue,
		},
		Symbol:    marketData.Symbol,
		Indicator: a.Name(),
	}, nil
}

// RawValue implements the Indicator interface.
func (a *ATR) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	data, err := fetchWindow(ctx, symbol, currentTime, a.period*3, a.period+1)
	if err != nil {
		return 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	values := talib.Atr(highSeries(data), lowSeries(data), closeSeries(data), a.period)

	return values[len(values)-1], nil
}
