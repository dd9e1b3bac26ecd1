package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// MASource selects which series the moving average is computed over.
type MASource string

const (
	MASourceClose  MASource = "close"
	MASourceVolume MASource = "volume"
)

// MA represents a simple moving average over close or volume.
type MA struct {
	period int
	source MASource
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	return &MA{
		period: 20,
		source: MASourceClose,
	}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Config configures the MA indicator. Expected parameters: period (int), optionally source (MASource).
func (m *MA) Config(params ...any) error {
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

	m.period = period

	if len(params) >= 2 {
		source, ok := params[1].(MASource)
		if !ok {
			return fmt.Errorf("invalid type for source parameter, expected MASource")
		}

		if source != MASourceClose && source != MASourceVolume {
			return fmt.Errorf("unsupported MA source: %s", source)
		}

		m.source = source
	}

	return nil
}

// GetSignal reports whether price is above or below the moving average.
func (m *MA) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	maValue, err := m.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	signalType := types.SignalTypeNoAction
	reason := "No signal"

	if m.source == MASourceClose {
		if marketData.Close > maValue {
			signalType = types.SignalTypeBuyLong
			reason = fmt.Sprintf("price above MA (value=%.2f)", maValue)
		} else if marketData.Close < maValue {
			signalType = types.SignalTypeSellShort
			reason = fmt.Sprintf("price below MA (value=%.2f)", maValue)
		}
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   signalType,
		Name:   string(m.Name()),
		Reason: reason,
		RawValue: map[string]float64{
			"ma": maValue,
		},
		Symbol:    marketData.Symbol,
		Indicator: m.Name(),
	}, nil
}

// RawValue implements the Indicator interface.
func (m *MA) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	data, err := fetchWindow(ctx, symbol, currentTime, m.period*2, m.period)
	if err != nil {
		return 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	series := closeSeries(data)
	if m.source == MASourceVolume {
		series = volumeSeries(data)
	}

	values := talib.Sma(series, m.period)

	return values[len(values)-1], nil
}
