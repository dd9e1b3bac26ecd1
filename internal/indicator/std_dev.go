package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// StdDev represents the rolling standard deviation of closes.
type StdDev struct {
	period int
	nbDev  float64
}

// NewStdDev creates a new StdDev indicator with default configuration.
func NewStdDev() Indicator {
	return &StdDev{
		period: 20,
		nbDev:  1.0,
	}
}

// Name returns the name of the indicator.
func (s *StdDev) Name() types.IndicatorType {
	return types.IndicatorTypeStdDev
}

// Config configures the StdDev indicator. Expected parameters: period (int),
// optionally the deviation multiplier (float64).
func (s *StdDev) Config(params ...any) error {
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

	if len(params) >= 2 {
		nbDev, ok := params[1].(float64)
		if !ok {
			return fmt.Errorf("invalid type for deviation multiplier, expected float64")
		}

		s.nbDev = nbDev
	}

	return nil
}

// GetSignal reports the current standard deviation without direction.
func (s *StdDev) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	value, err := s.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   types.SignalTypeNoAction,
		Name:   string(s.Name()),
		Reason: fmt.Sprintf("StdDev value=%.4f", value),
		RawValue: map[string]float64{
			"std_dev": value,
		},
		Symbol:    marketData.Symbol,
		Indicator: s.Name(),
	}, nil
}

// RawValue implements the Indicator interface.
func (s *StdDev) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	data, err := fetchWindow(ctx, symbol, currentTime, s.period*2, s.period)
	if err != nil {
		return 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	values := talib.StdDev(closeSeries(data), s.period, s.nbDev)

	return values[len(values)-1], nil
}
