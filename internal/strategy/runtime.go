package strategy

import (
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/cache"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/datasource"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/marker"
	"github.com/uljio/stratbench/internal/trading"
	"github.com/uljio/stratbench/internal/types"
)

// StrategyRuntime is implemented by every trading strategy.
type StrategyRuntime interface {
	// Initialize parses and validates the yaml strategy config
	Initialize(config string) error
	// InitializeContext provides the runtime services before the first bar
	InitializeContext(ctx RuntimeContext) error
	// ProcessData handles one bar of market data
	ProcessData(data types.MarketData) error
	// Name returns the strategy name
	Name() string
	// GetConfigSchema returns the JSON schema of the strategy config
	GetConfigSchema() (string, error)
}

type RuntimeContext struct {
	// DataSource provides the market data as well as the historical data
	DataSource datasource.DataSource
	// IndicatorRegistry is the registry of all indicators
	IndicatorRegistry indicator.IndicatorRegistry
	// Cache is the cache of the strategy
	Cache cache.Cache
	// TradingSystem is used to place orders
	TradingSystem trading.TradingSystem
	// Marker is used to mark a point in time with a signal and a reason
	Marker marker.Marker
}

// IndicatorContext derives the context indicators need from the runtime context.
func (c RuntimeContext) IndicatorContext() indicator.IndicatorContext {
	return indicator.IndicatorContext{
		DataSource:        c.DataSource,
		IndicatorRegistry: c.IndicatorRegistry,
		Cache:             c.Cache,
	}
}
