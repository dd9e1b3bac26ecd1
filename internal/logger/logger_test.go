package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
}

func (suite *LoggerTestSuite) TestNewNopLogger() {
	logger := NewNopLogger()
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)

	// A nop logger swallows output without panicking
	logger.Info("processing bar", zap.String("symbol", "BTC-USD"))
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestSyncNilInnerLogger() {
	logger := &Logger{Logger: nil}
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestSync() {
	logger, err := NewLogger()
	suite.NoError(err)

	// Syncing stdout can fail on some platforms, so only require that the
	// call returns
	_ = logger.Sync()
}

func (suite *LoggerTestSuite) TestRunLogging() {
	logger, err := NewLogger()
	suite.NoError(err)

	logger.Info("backtest run started",
		zap.String("strategy", "funding_crossover"),
		zap.String("data", "BTCUSDT_1h.parquet"),
	)
	logger.Debug("bar processed", zap.Int("count", 1000))
	logger.Warn("funding column missing, filter disabled")
	logger.Error("order rejected", zap.String("reason", "insufficient balance"))
}

func (suite *LoggerTestSuite) TestWithFields() {
	logger, err := NewLogger()
	suite.NoError(err)

	runLogger := logger.With(zap.String("run_id", "a1b2c3"))
	suite.NotNil(runLogger)
	runLogger.Info("stats written")
}
