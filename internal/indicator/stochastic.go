package indicator

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/uljio/stratbench/internal/types"
)

// Stochastic represents the slow stochastic oscillator.
type Stochastic struct {
	fastKPeriod    int
	slowKPeriod    int
	slowDPeriod    int
	lowerThreshold float64
	upperThreshold float64
}

// NewStochastic creates a new Stochastic indicator with default configuration.
func NewStochastic() Indicator {
	return &Stochastic{
		fastKPeriod:    14,
		slowKPeriod:    3,
		slowDPeriod:    3,
		lowerThreshold: 20,
		upperThreshold: 80,
	}
}

// Name returns the name of the indicator.
func (s *Stochastic) Name() types.IndicatorType {
	return types.IndicatorTypeStochastic
}

// Config configures the Stochastic indicator. Expected parameters:
// fastKPeriod (int), slowKPeriod (int), slowDPeriod (int), optionally
// lower threshold (float64) and upper threshold (float64).
func (s *Stochastic) Config(params ...any) error {
	if len(params) < 3 {
		return fmt.Errorf("Config expects at least 3 parameters: fastKPeriod, slowKPeriod, slowDPeriod (int)")
	}

	periods := make([]int, 3)

	for i := 0; i < 3; i++ {
		period, ok := params[i].(int)
		if !ok {
			return fmt.Errorf("invalid type for period parameter %d, expected int", i)
		}

		if period <= 0 {
			return fmt.Errorf("period must be a positive integer, got %d", period)
		}

		periods[i] = period
	}

	s.fastKPeriod, s.slowKPeriod, s.slowDPeriod = periods[0], periods[1], periods[2]

	if len(params) >= 4 {
		threshold, ok := params[3].(float64)
		if !ok {
			return fmt.Errorf("invalid type for threshold parameter, expected float64")
		}

		s.lowerThreshold = threshold
	}

	if len(params) >= 5 {
		threshold, ok := params[4].(float64)
		if !ok {
			return fmt.Errorf("invalid type for threshold parameter, expected float64")
		}

		s.upperThreshold = threshold
	}

	return nil
}

// GetSignal calculates the stochastic signal from %K against the thresholds.
func (s *Stochastic) GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error) {
	k, d, err := s.KD(marketData.Symbol, marketData.Time, ctx)
	if err != nil {
		return types.Signal{}, err
	}

	signalType := types.SignalTypeNoAction
	reason := "No signal"

	if k < s.lowerThreshold {
		signalType = types.SignalTypeBuyLong
		reason = fmt.Sprintf("stochastic oversold (k=%.2f)", k)
	} else if k > s.upperThreshold {
		signalType = types.SignalTypeSellShort
		reason = fmt.Sprintf("stochastic overbought (k=%.2f)", k)
	}

	return types.Signal{
		Time:   marketData.Time,
		Type:   signalType,
		Name:   string(s.Name()),
		Reason: reason,
		RawValue: map[string]float64{
			"k": k,
			"d": d,
		},
		Symbol:    marketData.Symbol,
		Indicator: s.Name(),
	}, nil
}

// KD returns the latest slow %K and %D values.
func (s *Stochastic) KD(symbol string, currentTime time.Time, ctx IndicatorContext) (float64, float64, error) {
	minBars := s.fastKPeriod + s.slowKPeriod + s.slowDPeriod

	data, err := fetchWindow(ctx, symbol, currentTime, minBars*2, minBars)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get historical data for symbol %s: %w", symbol, err)
	}

	slowK, slowD := talib.Stoch(
		highSeries(data), lowSeries(data), closeSeries(data),
		s.fastKPeriod, s.slowKPeriod, talib.SMA, s.slowDPeriod, talib.SMA)

	return slowK[len(slowK)-1], slowD[len(slowD)-1], nil
}

// RawValue implements the Indicator interface. It returns the slow %K value.
func (s *Stochastic) RawValue(params ...any) (float64, error) {
	symbol, currentTime, ctx, err := parseRawValueParams(params)
	if err != nil {
		return 0, err
	}

	k, _, err := s.KD(symbol, currentTime, ctx)
	if err != nil {
		return 0, err
	}

	return k, nil
}
