package strategy

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/cache"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/datasource"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
)

const testSymbol = "BTC-USD"

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// sliceDataSource serves a fixed slice of bars for indicator lookbacks.
type sliceDataSource struct {
	bars []types.MarketData
}

func (s *sliceDataSource) Initialize(path string) error { return nil }

func (s *sliceDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		for _, bar := range s.bars {
			if !yield(bar, nil) {
				return
			}
		}
	}
}

func (s *sliceDataSource) GetRange(start time.Time, end time.Time, interval optional.Option[datasource.Interval]) ([]types.MarketData, error) {
	var out []types.MarketData
	for _, bar := range s.bars {
		if !bar.Time.Before(start) && !bar.Time.After(end) {
			out = append(out, bar)
		}
	}
	return out, nil
}

func (s *sliceDataSource) GetPreviousNumberOfDataPoints(end time.Time, symbol string, count int) ([]types.MarketData, error) {
	var out []types.MarketData
	for _, bar := range s.bars {
		if bar.Symbol == symbol && !bar.Time.After(end) {
			out = append(out, bar)
		}
	}
	if len(out) > count {
		out = out[len(out)-count:]
	}
	if len(out) < count {
		return out, errors.NewInsufficientDataErrorf(count, len(out), symbol, "only %d of %d bars available", len(out), count)
	}
	return out, nil
}

func (s *sliceDataSource) ReadLastData(symbol string) (types.MarketData, error) {
	if len(s.bars) == 0 {
		return types.MarketData{}, errors.New(errors.ErrCodeDataNotFound, "no data")
	}
	return s.bars[len(s.bars)-1], nil
}

func (s *sliceDataSource) ReadFirstData(symbol string) (types.MarketData, error) {
	if len(s.bars) == 0 {
		return types.MarketData{}, errors.New(errors.ErrCodeDataNotFound, "no data")
	}
	return s.bars[0], nil
}

func (s *sliceDataSource) GetMarketData(symbol string, timestamp time.Time) (types.MarketData, error) {
	for _, bar := range s.bars {
		if bar.Symbol == symbol && bar.Time.Equal(timestamp) {
			return bar, nil
		}
	}
	return types.MarketData{}, errors.New(errors.ErrCodeDataNotFound, "no bar at timestamp")
}

func (s *sliceDataSource) GetAllSymbols() ([]string, error) {
	return []string{testSymbol}, nil
}

func (s *sliceDataSource) ExecuteSQL(query string, params ...interface{}) ([]datasource.SQLResult, error) {
	return nil, nil
}

func (s *sliceDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	return len(s.bars), nil
}

func (s *sliceDataSource) Close() error { return nil }

// fakeTradingSystem records orders and close requests and serves canned state.
type fakeTradingSystem struct {
	balance  float64
	equity   float64
	pending  int
	position types.Position

	placed []types.ExecuteOrder
	closes []string
}

func newFakeTradingSystem(balance float64) *fakeTradingSystem {
	return &fakeTradingSystem{balance: balance, equity: balance}
}

func (f *fakeTradingSystem) PlaceOrder(order types.ExecuteOrder) error {
	f.placed = append(f.placed, order)
	return nil
}

func (f *fakeTradingSystem) PlaceMultipleOrders(orders []types.ExecuteOrder) error {
	f.placed = append(f.placed, orders...)
	return nil
}

func (f *fakeTradingSystem) GetPositions() ([]types.Position, error) {
	return []types.Position{f.position}, nil
}

func (f *fakeTradingSystem) GetPosition(symbol string) (types.Position, error) {
	return f.position, nil
}

func (f *fakeTradingSystem) ClosePosition(symbol string, reason string) error {
	f.closes = append(f.closes, reason)
	f.position = types.Position{Symbol: symbol}
	return nil
}

func (f *fakeTradingSystem) CancelOrder(orderID string) error { return nil }

func (f *fakeTradingSystem) CancelAllOrders() error { return nil }

func (f *fakeTradingSystem) GetOrderStatus(orderID string) (types.OrderStatus, error) {
	return types.OrderStatusPending, nil
}

func (f *fakeTradingSystem) GetBalance() (float64, error) { return f.balance, nil }

func (f *fakeTradingSystem) GetEquity() (float64, error) { return f.equity, nil }

func (f *fakeTradingSystem) PendingOrderCount() (int, error) { return f.pending, nil }

func (f *fakeTradingSystem) GetMaxBuyQuantity(symbol string, price float64) (float64, error) {
	if price <= 0 {
		return 0, nil
	}
	return f.balance / price, nil
}

func (f *fakeTradingSystem) setLongPosition(quantity, entryPrice float64) {
	f.position = types.Position{
		Symbol:              testSymbol,
		TotalLongInQuantity: quantity,
		TotalLongInAmount:   quantity * entryPrice,
	}
}

func (f *fakeTradingSystem) setShortPosition(quantity, entryPrice float64) {
	f.position = types.Position{
		Symbol:               testSymbol,
		TotalShortInQuantity: quantity,
		TotalShortInAmount:   quantity * entryPrice,
	}
}

// makeBars builds hourly bars with closes from closeFn.
func makeBars(count int, closeFn func(i int) float64) []types.MarketData {
	bars := make([]types.MarketData, count)
	for i := 0; i < count; i++ {
		c := closeFn(i)
		bars[i] = types.MarketData{
			Symbol: testSymbol,
			Time:   testStart.Add(time.Duration(i) * time.Hour),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func lastBar(bars []types.MarketData) types.MarketData {
	return bars[len(bars)-1]
}

func newTestContext(bars []types.MarketData, ts *fakeTradingSystem) RuntimeContext {
	return RuntimeContext{
		DataSource:        &sliceDataSource{bars: bars},
		IndicatorRegistry: indicator.NewDefaultIndicatorRegistry(),
		Cache:             cache.NewCacheV1(),
		TradingSystem:     ts,
	}
}

// newRuntime builds a strategy with default config wired to the given bars.
func newRuntime(t *testing.T, name string, bars []types.MarketData, ts *fakeTradingSystem) StrategyRuntime {
	t.Helper()

	runtime, err := NewStrategy(name)
	assert.NoError(t, err)
	assert.NoError(t, runtime.Initialize(""))
	assert.NoError(t, runtime.InitializeContext(newTestContext(bars, ts)))

	return runtime
}
