package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/uljio/stratbench/internal/backtest/engine"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/cache"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/datasource"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/internal/strategy"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/internal/version"
	"github.com/uljio/stratbench/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// BacktestEngineV1 runs every loaded strategy against every config and data
// file, sequentially, one bar at a time.
type BacktestEngineV1 struct {
	config              BacktestEngineV1Config
	strategies          []strategy.StrategyRuntime
	strategyConfigPaths []string
	strategyConfigs     []string
	dataPaths           []string
	resultsFolder       string
	log                 *logger.Logger
	indicatorRegistry   indicator.IndicatorRegistry
	marker              *BacktestMarker
	tradingSystem       *BacktestTrading
	state               *BacktestState
	datasource          datasource.DataSource
	cache               cache.Cache
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config: EmptyConfig(),
		cache:  cache.NewCacheV1(),
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	var err error

	b.log, err = logger.NewLogger()
	if err != nil {
		return err
	}

	b.log.Debug("backtest engine initialized",
		zap.Float64("initial_capital", b.config.InitialCapital),
		zap.String("broker", string(b.config.Broker)),
	)

	b.indicatorRegistry = indicator.NewDefaultIndicatorRegistry()

	b.state, err = NewBacktestState(b.log)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create backtest state", err)
	}

	if err := b.state.Initialize(); err != nil {
		return err
	}

	commission := commission_fee.GetCommissionFeeHandler(b.config.Broker, b.config.CommissionRate)
	b.tradingSystem = NewBacktestTrading(b.state, b.config.InitialCapital, commission, b.config.DecimalPrecision)

	return nil
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(strat strategy.StrategyRuntime) error {
	b.strategies = append(b.strategies, strat)
	b.log.Debug("strategy loaded",
		zap.String("name", strat.Name()),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// SetConfigPath implements engine.Engine.
func (b *BacktestEngineV1) SetConfigPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "invalid config glob %s", path)
	}

	b.strategyConfigPaths = files
	b.strategyConfigs = nil

	return nil
}

// SetConfigContent implements engine.Engine.
func (b *BacktestEngineV1) SetConfigContent(configs []string) error {
	b.strategyConfigs = configs
	b.strategyConfigPaths = nil

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "invalid data glob %s", path)
	}

	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "failed to resolve data path %s", file)
		}

		absolutePaths[i] = absPath
	}

	b.dataPaths = absolutePaths

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.DataSource) error {
	b.datasource = source

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	return b.config.GenerateSchemaJSON()
}

type configItem struct {
	name    string
	content string
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() { callbacks.OnBacktestEnd(err) }()
	}

	if err = b.preRunCheck(); err != nil {
		return err
	}

	configs, err := b.collectConfigs()
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(b.resultsFolder); statErr == nil {
		os.RemoveAll(b.resultsFolder)
	}

	if err = os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create results folder", err)
	}

	if callbacks.OnBacktestStart != nil {
		if err = callbacks.OnBacktestStart(len(b.strategies), len(configs), len(b.dataPaths)); err != nil {
			return err
		}
	}

	for _, strat := range b.strategies {
		for _, cfg := range configs {
			for _, dataPath := range b.dataPaths {
				if err = b.runOne(ctx, callbacks, strat, cfg, dataPath); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// runOne executes a single strategy+config+data file combination and writes
// its results. The engine's per-run state is reset afterwards even on error
// paths that reach the cleanup.
func (b *BacktestEngineV1) runOne(ctx context.Context, callbacks engine.LifecycleCallbacks, strat strategy.StrategyRuntime, cfg configItem, dataPath string) error {
	runID := uuid.NewString()

	var err error

	b.marker, err = NewBacktestMarker(b.log)
	if err != nil {
		return err
	}
	defer b.marker.Close()

	if err := b.state.Initialize(); err != nil {
		return err
	}

	if err := strat.Initialize(cfg.content); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to initialize strategy %s", strat.Name())
	}

	runContext := strategy.RuntimeContext{
		DataSource:        b.datasource,
		IndicatorRegistry: b.indicatorRegistry,
		Cache:             b.cache,
		TradingSystem:     b.tradingSystem,
		Marker:            b.marker,
	}

	if err := strat.InitializeContext(runContext); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "failed to initialize strategy context for %s", strat.Name())
	}

	if err := b.datasource.Initialize(dataPath); err != nil {
		return err
	}

	count, err := b.datasource.Count(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return err
	}

	resultFolderPath := getResultFolder(cfg.name, dataPath, b, strat)

	b.log.Info("running strategy",
		zap.String("run_id", runID),
		zap.String("strategy", strat.Name()),
		zap.String("config", cfg.name),
		zap.String("data", dataPath),
		zap.Int("bars", count),
	)

	if callbacks.OnRunStart != nil {
		if err := callbacks.OnRunStart(runID, strat.Name(), cfg.name, dataPath, count); err != nil {
			return err
		}
	}

	current := 0

	for data, err := range b.datasource.ReadAll(b.config.StartTime, b.config.EndTime) {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if cached, ok := b.datasource.(*datasource.CachedDataSource); ok {
			cached.ClearCache()
		}

		if err := b.tradingSystem.UpdateCurrentMarketData(data); err != nil {
			return err
		}

		if err := strat.ProcessData(data); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed on bar %s", strat.Name(), data.Time)
		}

		current++

		if callbacks.OnProcessData != nil {
			if err := callbacks.OnProcessData(current, count); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(resultFolderPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestReportError, "failed to create result folder", err)
	}

	if err := b.writeResults(runID, strat, dataPath, runContext, resultFolderPath); err != nil {
		return err
	}

	if callbacks.OnRunEnd != nil {
		callbacks.OnRunEnd(runID, resultFolderPath)
	}

	return b.cleanUpRun()
}

func (b *BacktestEngineV1) collectConfigs() ([]configItem, error) {
	var configs []configItem

	if len(b.strategyConfigs) > 0 {
		for i, content := range b.strategyConfigs {
			configs = append(configs, configItem{
				name:    fmt.Sprintf("config_%d", i),
				content: content,
			})
		}

		return configs, nil
	}

	for _, configPath := range b.strategyConfigPaths {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "failed to read config %s", configPath)
		}

		configs = append(configs, configItem{
			name:    configPath,
			content: string(content),
		})
	}

	return configs, nil
}

// writeResults exports stats.yaml, the orders and trades tables, and the
// signal marks into the run's result folder. The buy and hold baseline values
// the initial capital held from the first to the last bar of the data file.
func (b *BacktestEngineV1) writeResults(runID string, strat strategy.StrategyRuntime, dataPath string, runContext strategy.RuntimeContext, resultFolderPath string) error {
	stats, err := b.state.GetStats(runContext)
	if err != nil {
		return err
	}

	for i := range stats {
		stats[i].ID = runID
		stats[i].Strategy = types.StrategyInfo{
			Name:          strat.Name(),
			SchemaVersion: version.GetVersion(),
		}
		stats[i].DataPath = dataPath

		buyAndHold, err := b.buyAndHoldPnl(stats[i].Symbol)
		if err != nil {
			return err
		}

		stats[i].BuyAndHoldPnl = buyAndHold
	}

	if err := types.WriteTradeStats(filepath.Join(resultFolderPath, "stats.yaml"), stats); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestReportError, "failed to write stats", err)
	}

	if err := b.state.Write(resultFolderPath); err != nil {
		return err
	}

	return b.marker.Write(resultFolderPath)
}

// buyAndHoldPnl returns the profit of holding the initial capital in the
// symbol from the first close to the last close of the data file.
func (b *BacktestEngineV1) buyAndHoldPnl(symbol string) (float64, error) {
	first, err := b.datasource.ReadFirstData(symbol)
	if err != nil {
		return 0, err
	}

	last, err := b.datasource.ReadLastData(symbol)
	if err != nil {
		return 0, err
	}

	if first.Close <= 0 {
		return 0, nil
	}

	return (last.Close - first.Close) / first.Close * b.config.InitialCapital, nil
}

func (b *BacktestEngineV1) cleanUpRun() error {
	if err := b.state.Cleanup(); err != nil {
		return err
	}

	b.cache.Reset()
	b.tradingSystem.Reset(b.config.InitialCapital)

	return b.marker.Cleanup()
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.strategies) == 0 {
		return errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies loaded")
	}

	if len(b.strategyConfigPaths) == 0 && len(b.strategyConfigs) == 0 {
		return errors.New(errors.ErrCodeBacktestNoConfigs, "no strategy configs loaded")
	}

	if len(b.dataPaths) == 0 {
		return errors.New(errors.ErrCodeBacktestNoDataPaths, "no data paths loaded")
	}

	if b.resultsFolder == "" {
		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.datasource == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	if b.state == nil {
		return errors.New(errors.ErrCodeBacktestStateNil, "engine not initialized")
	}

	return nil
}
