package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// SpreadProxy estimates the relative bid-ask spread from bar data as the
// rolling mean of (high-low)/close. Wide bars stand in for wide spreads when
// no order book data is available.
type SpreadProxy struct {
	period int
}

// NewSpreadProxy creates a new SpreadProxy indicator with default configuration.
func NewSpreadProxy() Indicator {
	return &SpreadProxy{
		period: 20,
	}
}

// Name returns the name of the indicator.
func (s *SpreadProxy) Name() types.IndicatorType {
	return types.IndicatorTypeSpreadProxy
}

// Config configures the SpreadProxy indicator. Expected parameters: period (int).
func (s *SpreadProxy) Config(params ...any) error {
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

	s.period = period

	return nil
}

// GetSignal reports the current spread proxy without direction.
func (s *SpreadProxy) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	value, err := s.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   types.SignalTypeNoAction,
		Name:   string(s.Name()),
		Reason: fmt.Sprintf("spread proxy value=%.6f", value),
		RawValue: map[string]float64{
			"spread_proxy": value,
		},
		Symbol:    marketData.Symbol,
		Indicator: s.Name(),
	}, nil
}

// RawValue implements the Indicator interface.
func (s *SpreadProxy) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	data, err := fetchWindow(ctx, symbol, currentTime, s.period*2, s.period)
	if err != nil {
		return 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	relRange := make([]float64, len(data))

	for i, d := range data {
		if d.Close != 0 {
			relRange[i] = (d.High - d.Low) / d.Close
		}
	}

	values := talib.Sma(relRange, s.period)

	return values[len(values)-1], nil
}
