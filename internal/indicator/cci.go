package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// CCI represents the Commodity Channel Index indicator.
type CCI struct {
	period         int
	lowerThreshold float64
	upperThreshold float64
}

// NewCCI creates a new CCI indicator with default configuration.
func NewCCI() Indicator {
	return &CCI{
		period:         20,
		lowerThreshold: -100,
		upperThreshold: 100,
	}
}

// Name returns the name of the indicator.
func (c *CCI) Name() types.IndicatorType {
	return types.IndicatorTypeCCI
}

// Config configures the CCI indicator. Expected parameters: period (int),
// optionally lower threshold (float64) and upper threshold (float64).
func (c *CCI) Config(params ...any) error {
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

	c.period = period

	if len(params) >= 2 {
		threshold, ok := params[1].(float64)
		if !ok {
			return fmt.Errorf("invalid type for threshold parameter, expected float64")
		}

		c.lowerThreshold = threshold
	}

	if len(params) >= 3 {
		threshold, ok := params[2].(float64)
		if !ok {
			return fmt.Errorf("invalid type for threshold parameter, expected float64")
		}

		c.upperThreshold = threshold
	}

	return nil
}

// GetSignal calculates the CCI signal.
func (c *CCI) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	cciValue, err := c.RawValue(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	signalType := types.SignalTypeNoAction
	reason := "No signal"

	if cciValue < c.lowerThreshold {
		signalType = types.SignalTypeBuyLong
		reason = fmt.Sprintf("CCI oversold (value=%.2f)", cciValue)
	} else if cciValue > c.upperThreshold {
		signalType = types.SignalTypeSellShort
		reason = fmt.Sprintf("CCI overbought (value=%.2f)", cciValue)
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   signalType,
		Name:   string(c.Name()),
		Reason: reason,
		RawValue: map[string]float64{
			"cci": cciValue,
		},
		Symbol:    marketData.Symbol,
		Indicator: c.Name(),
	}, nil
}

// RawValue implements the Indicator interface.
func (c *CCI) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	data, err := fetchWindow(ctx, symbol, currentTime, c.period*2, c.period)
	if err != nil {
		return 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	values := talib.Cci(highSeries(data), lowSeries(data), closeSeries(data), c.period)

	return values[len(values)-1], nil
}
