package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) TestWriteTradeStats() {
	stats := []TradeStats{
		{
			ID:        "run-1",
			Timestamp: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			Symbol:    "BTC-USD",
			TradeResult: TradeResult{
				NumberOfTrades:        10,
				NumberOfWinningTrades: 6,
				NumberOfLosingTrades:  4,
				WinRate:               0.6,
				MaxDrawdown:           0.12,
			},
			TotalFees: 42.5,
			TradeHoldingTime: TradeHoldingTime{
				Min: 1,
				Max: 48,
				Avg: 12,
			},
			TradePnl: TradePnl{
				RealizedPnL:   1200.0,
				UnrealizedPnL: -50.0,
				TotalPnL:      1150.0,
				MaximumLoss:   -300.0,
				MaximumProfit: 800.0,
			},
			BuyAndHoldPnl: 900.0,
			Strategy: StrategyInfo{
				Name:          "funding_crossover",
				SchemaVersion: "1.0.0",
			},
			DataPath: "data/BTC-USD.csv",
		},
	}

	path := filepath.Join(suite.T().TempDir(), "stats.yaml")
	suite.Require().NoError(WriteTradeStats(path, stats))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var decoded []TradeStats
	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Require().Len(decoded, 1)
	suite.Equal("run-1", decoded[0].ID)
	suite.Equal("BTC-USD", decoded[0].Symbol)
	suite.Equal(0.6, decoded[0].TradeResult.WinRate)
	suite.Equal(1150.0, decoded[0].TradePnl.TotalPnL)
	suite.Equal("funding_crossover", decoded[0].Strategy.Name)
	suite.Equal(900.0, decoded[0].BuyAndHoldPnl)
}

func (suite *StatisticsTestSuite) TestWriteTradeStatsBadPath() {
	err := WriteTradeStats("/nonexistent-dir/stats.yaml", nil)
	suite.Error(err)
}
