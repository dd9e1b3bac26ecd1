package indicator

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// OBV represents On-Balance Volume accumulated over a trailing window.
// OBV is cumulative by nature, so the value is only meaningful relative to
// other values from the same window length.
type OBV struct {
	window int
}

// NewOBV creates a new OBV indicator with default configuration.
func NewOBV() Indicator {
	return &OBV{
		window: 50,
	}
}

// Name returns the name of the indicator.
func (o *OBV) Name() types.IndicatorType {
	return types.IndicatorTypeOBV
}

// Config configures the OBV indicator. Expected parameters: window (int).
func (o *OBV) Config(params ...any) error {
	if len(params) < 1 {
		return fmt.Errorf("Config expects at least 1 parameter: window (int)")
	}

	window, ok := params[0].(int)
	if !ok {
		return fmt.Errorf("invalid type for window parameter, expected int")
	}

	if window <= 1 {
		return fmt.Errorf("window must be greater than 1, got %d", window)
	}

	o.window = window

	return nil
}

// GetSignal reports the current OBV without direction.
func (o *OBV) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	value, err := o.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   types.SignalTypeNoAction,
		Name:   string(o.Name()),
		Reason: fmt.Sprintf("OBV value=%.0f", value),
		RawValue: map[string]float64{
			"obv": value,
		},
		Symbol:    marketData.Symbol,
		Indicator: o.Name(),
	}, nil
}

// Series returns the OBV series over the trailing window in chronological order.
// Useful for divergence checks that compare OBV slope against price slope.
func (o *OBV) Series(symbol string, currentTime time.Time, ctx IndicatorContext) ([]float64, error) {
	data, err := fetchWindow(ctx, symbol, currentTime, o.window, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	return talib.Obv(closeSeries(data), volumeSeries(data)), nil
}

// RawValue implements the Indicator interface.
func (o *OBV) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	series, err := o.Series(symbol, currentTime, ctx)
	if err != nil {
		return 0, err
	}

	return series[len(series)-1], nil
}
