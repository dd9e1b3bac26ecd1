package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// EMA represents the Exponential Moving Average indicator.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator with default configuration.
func NewEMA() Indicator {
	return &EMA{
		period: 20,
	}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config configures the EMA indicator. Expected parameters: period (int).
func (e *EMA) Config(params ...any) error {
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

	e.period = period

	return nil
}

// GetSignal reports whether price is above or below the EMA.
func (e *EMA) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	emaValue, err := e.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	signalType := types.SignalTypeNoAction
	reason := "No signal"

	if marketData.Close > emaValue {
		signalType = types.SignalTypeBuyLong
		reason = fmt.Sprintf("price above EMA (value=%.2f)", emaValue)
	} else if marketData.Close < emaValue {
		signalType = types.SignalTypeSellShort
		reason = fmt.Sprintf("price below EMA (value=%.2f)", emaValue)
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   signalType,
		Name:   string(e.Name()),
		Reason: reason,
		RawValue: map[string]float64{
			"ema": emaValue,
		},
		Symbol:    marketData.Symbol,
		Indicator: e.Name(),
	}, nil
}

// RawValue implements the Indicator interface.
func (e *EMA) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	// EMA needs extra warmup history to converge
	data, err := fetchWindow(ctx, symbol, currentTime, e.period*3, e.period)
	if err != nil {
		return 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	values := talib.Ema(closeSeries(data), e.period)

	return values[len(values)-1], nil
}
