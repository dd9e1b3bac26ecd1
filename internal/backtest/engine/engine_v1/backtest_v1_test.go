package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/uljio/stratbench/internal/backtest/engine"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/datasource"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/internal/strategy"
	"github.com/uljio/stratbench/internal/types"
)

// buyAndExitStrategy buys on the first bar and closes the position a fixed
// number of bars later. It exists to exercise the engine loop end to end
// without any indicator warmup.
type buyAndExitStrategy struct {
	ctx      strategy.RuntimeContext
	barsSeen int
	exitBar  int
}

func (s *buyAndExitStrategy) Initialize(_ string) error { return nil }

func (s *buyAndExitStrategy) InitializeContext(ctx strategy.RuntimeContext) error {
	s.ctx = ctx
	s.barsSeen = 0

	return nil
}

func (s *buyAndExitStrategy) Name() string { return "buy_and_exit" }

func (s *buyAndExitStrategy) GetConfigSchema() (string, error) { return "{}", nil }

func (s *buyAndExitStrategy) ProcessData(data types.MarketData) error {
	s.barsSeen++

	switch s.barsSeen {
	case 1:
		order := types.ExecuteOrder{
			ID:           uuid.NewString(),
			Symbol:       data.Symbol,
			Side:         types.PurchaseTypeBuy,
			OrderType:    types.OrderTypeMarket,
			Reason:       types.Reason{Reason: types.OrderReasonStrategy, Message: "first bar entry"},
			Price:        data.Close,
			StrategyName: s.Name(),
			Quantity:     10,
			PositionType: types.PositionTypeLong,
		}

		if err := s.ctx.TradingSystem.PlaceOrder(order); err != nil {
			return err
		}

		if s.ctx.Marker != nil {
			signal := types.Signal{
				Time:   data.Time,
				Type:   types.SignalTypeBuyLong,
				Name:   s.Name(),
				Symbol: data.Symbol,
			}
			if err := s.ctx.Marker.Mark(data, signal, "first bar entry"); err != nil {
				return err
			}
		}
	case s.exitBar:
		return s.ctx.TradingSystem.ClosePosition(data.Symbol, types.OrderReasonSignalExit)
	}

	return nil
}

type BacktestEngineV1TestSuite struct {
	suite.Suite
	dataDir string
	csvPath string
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	suite.dataDir = suite.T().TempDir()
	suite.csvPath = filepath.Join(suite.dataDir, "BTC-USD.csv")

	var sb strings.Builder

	sb.WriteString("time,open,high,low,close,volume\n")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		c := 100.0 + float64(i)
		sb.WriteString(fmt.Sprintf("%s,%.2f,%.2f,%.2f,%.2f,%.2f\n",
			start.Add(time.Duration(i)*time.Hour).Format("2006-01-02 15:04:05"),
			c-0.5, c+1, c-1, c, 1000.0))
	}

	suite.Require().NoError(os.WriteFile(suite.csvPath, []byte(sb.String()), 0644))
}

func (suite *BacktestEngineV1TestSuite) newEngine() engine.Engine {
	eng := NewBacktestEngineV1()
	suite.Require().NoError(eng.Initialize(`
initial_capital: 10000
broker: zero_commission
decimal_precision: 2
`))

	return eng
}

func (suite *BacktestEngineV1TestSuite) TestRunWritesResults() {
	eng := suite.newEngine()
	resultsDir := filepath.Join(suite.T().TempDir(), "results")

	source, err := datasourceForTest(suite)
	suite.Require().NoError(err)

	suite.Require().NoError(eng.SetDataSource(source))
	suite.Require().NoError(eng.SetDataPath(filepath.Join(suite.dataDir, "*.csv")))
	suite.Require().NoError(eng.SetResultsFolder(resultsDir))
	suite.Require().NoError(eng.SetConfigContent([]string{""}))
	suite.Require().NoError(eng.LoadStrategy(&buyAndExitStrategy{exitBar: 5}))

	var (
		runStarts  int
		runEnds    int
		processed  int
		total      int
		endErr     error
		endCalled  bool
		resultPath string
	)

	callbacks := engine.LifecycleCallbacks{
		OnBacktestStart: func(totalStrategies, totalConfigs, totalDataFiles int) error {
			suite.Assert().Equal(1, totalStrategies)
			suite.Assert().Equal(1, totalConfigs)
			suite.Assert().Equal(1, totalDataFiles)

			return nil
		},
		OnBacktestEnd: func(err error) {
			endCalled = true
			endErr = err
		},
		OnRunStart: func(runID, strategyName, configName, dataFilePath string, totalDataPoints int) error {
			runStarts++
			suite.Assert().NotEmpty(runID)
			suite.Assert().Equal("buy_and_exit", strategyName)
			suite.Assert().Equal(10, totalDataPoints)

			return nil
		},
		OnRunEnd: func(runID, resultFolderPath string) {
			runEnds++
			resultPath = resultFolderPath
		},
		OnProcessData: func(current, totalPoints int) error {
			processed = current
			total = totalPoints

			return nil
		},
	}

	suite.Require().NoError(eng.Run(context.Background(), callbacks))

	suite.Assert().True(endCalled)
	suite.Assert().NoError(endErr)
	suite.Assert().Equal(1, runStarts)
	suite.Assert().Equal(1, runEnds)
	suite.Assert().Equal(10, processed)
	suite.Assert().Equal(10, total)

	suite.Require().NotEmpty(resultPath)
	suite.Assert().FileExists(filepath.Join(resultPath, "stats.yaml"))
	suite.Assert().FileExists(filepath.Join(resultPath, "trades.parquet"))
	suite.Assert().FileExists(filepath.Join(resultPath, "orders.parquet"))
	suite.Assert().FileExists(filepath.Join(resultPath, "marks.parquet"))

	stats, err := os.ReadFile(filepath.Join(resultPath, "stats.yaml"))
	suite.Require().NoError(err)
	suite.Assert().Contains(string(stats), "BTC-USD")
	suite.Assert().Contains(string(stats), "buy_and_exit")
	suite.Assert().Contains(string(stats), "buy_and_hold_pnl")
}

func (suite *BacktestEngineV1TestSuite) TestRunStopsOnContextCancel() {
	eng := suite.newEngine()

	source, err := datasourceForTest(suite)
	suite.Require().NoError(err)

	suite.Require().NoError(eng.SetDataSource(source))
	suite.Require().NoError(eng.SetDataPath(suite.csvPath))
	suite.Require().NoError(eng.SetResultsFolder(filepath.Join(suite.T().TempDir(), "results")))
	suite.Require().NoError(eng.SetConfigContent([]string{""}))
	suite.Require().NoError(eng.LoadStrategy(&buyAndExitStrategy{exitBar: 5}))

	ctx, cancel := context.WithCancel(context.Background())

	callbacks := engine.LifecycleCallbacks{
		OnProcessData: func(current, total int) error {
			if current == 3 {
				cancel()
			}

			return nil
		},
	}

	err = eng.Run(ctx, callbacks)
	suite.Assert().ErrorIs(err, context.Canceled)
}

func (suite *BacktestEngineV1TestSuite) TestPreRunChecks() {
	eng := suite.newEngine()

	// Nothing loaded yet.
	err := eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Assert().Error(err)

	suite.Require().NoError(eng.LoadStrategy(&buyAndExitStrategy{exitBar: 5}))
	err = eng.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.Assert().Error(err)
}

func (suite *BacktestEngineV1TestSuite) TestGetConfigSchema() {
	eng := suite.newEngine()

	schema, err := eng.GetConfigSchema()
	suite.Require().NoError(err)
	suite.Assert().Contains(schema, "initial_capital")
}

func datasourceForTest(suite *BacktestEngineV1TestSuite) (datasource.DataSource, error) {
	return datasource.NewDataSource("", logger.NewNopLogger())
}
