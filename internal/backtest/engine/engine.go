package engine

import (
	"context"

	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/datasource"
	"github.com/uljio/stratbench/internal/strategy"
)

// Lifecycle callback types for backtest phases.
// All callbacks with an error return can abort execution by returning an error.

// OnBacktestStartCallback is called when the entire backtest begins.
type OnBacktestStartCallback func(totalStrategies int, totalConfigs int, totalDataFiles int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when processing of a strategy+config+data file combination begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, strategyName string, configName string, dataFilePath string, totalDataPoints int) error

// OnRunEndCallback is called when processing of a strategy+config+data file combination ends.
type OnRunEndCallback func(runID string, resultFolderPath string)

// OnProcessDataCallback is called for each data point processed.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// Nil fields mean no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart OnBacktestStartCallback
	OnBacktestEnd   OnBacktestEndCallback
	OnRunStart      OnRunStartCallback
	OnRunEnd        OnRunEndCallback
	OnProcessData   OnProcessDataCallback
}

type Engine interface {
	// Initialize the engine with the given yaml configuration.
	Initialize(config string) error
	// SetConfigPath sets the glob pattern for strategy configuration files.
	SetConfigPath(path string) error
	// SetConfigContent sets strategy configurations directly from string content.
	// This is an alternative to SetConfigPath for programmatic use.
	SetConfigContent(configs []string) error
	// SetDataPath sets the path to the market data files. Accepts glob
	// patterns for batch loading (e.g., "data/*.csv").
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for backtest results.
	SetResultsFolder(folder string) error
	// LoadStrategy loads a trading strategy. May be called multiple times
	// to run several strategies in one pass.
	LoadStrategy(strategy strategy.StrategyRuntime) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// Run executes every loaded strategy against every config and data file.
	// The context cancels a run between bars.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
