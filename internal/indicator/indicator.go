package indicator

import (
	"fmt"
	"time"

	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/cache"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/datasource"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
)

type IndicatorContext struct {
	DataSource        datasource.DataSource
	IndicatorRegistry IndicatorRegistry
	Cache             cache.Cache
}

// Indicator interface defines methods that any technical indicator must implement
type Indicator interface {
	// GetSignal evaluates the indicator against the current bar
	GetSignal(marketData types.MarketData, ctx IndicatorContext) (types.Signal, error)
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// RawValue returns the raw value of the indicator
	RawValue(params ...any) (float64, error)
	Config(params ...any) error
}

// parseRawValueParams extracts the common RawValue parameters shared by all indicators.
func parseRawValueParams(params []any) (string, time.Time, IndicatorContext, error) {
	if len(params) < 3 {
		return "", time.Time{}, IndicatorContext{}, fmt.Errorf("RawValue requires at least 3 parameters: symbol (string), currentTime (time.Time), ctx (IndicatorContext)")
	}

	symbol, ok := params[0].(string)
	if !ok {
		return "", time.Time{}, IndicatorContext{}, fmt.Errorf("first parameter must be of type string (symbol)")
	}

	currentTime, ok := params[1].(time.Time)
	if !ok {
		return "", time.Time{}, IndicatorContext{}, fmt.Errorf("second parameter must be of type time.Time")
	}

	ctx, ok := params[2].(IndicatorContext)
	if !ok {
		return "", time.Time{}, IndicatorContext{}, fmt.Errorf("third parameter must be of type IndicatorContext")
	}

	return symbol, currentTime, ctx, nil
}

// fetchWindow returns up to desired bars ending at end. A partial window is
// accepted as long as it covers minimum bars, so indicators work near the
// start of a data file once enough history exists for the math.
func fetchWindow(ctx IndicatorContext, symbol string, end time.Time, desired int, minimum int) ([]types.MarketData, error) {
	data, err := ctx.DataSource.GetPreviousNumberOfDataPoints(end, symbol, desired)
	if err != nil {
		if errors.IsInsufficientDataError(err) && len(data) >= minimum {
			return data, nil
		}

		return nil, err
	}

	return data, nil
}

func closeSeries(data []types.MarketData) []float64 {
	series := make([]float64, len(data))
	for i, d := range data {
		series[i] = d.Close
	}

	return series
}

func highSeries(data []types.MarketData) []float64 {
	series := make([]float64, len(data))
	for i, d := range data {
		series[i] = d.High
	}

	return series
}

func lowSeries(data []types.MarketData) []float64 {
	series := make([]float64, len(data))
	for i, d := range data {
		series[i] = d.Low
	}

	return series
}

func volumeSeries(data []types.MarketData) []float64 {
	series := make([]float64, len(data))
	for i, d := range data {
		series[i] = d.Volume
	}

	return series
}
