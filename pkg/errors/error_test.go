package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNew() {
	err := New(ErrCodeStrategyConfigError, "risk_fraction must be below 1")
	suite.Equal(ErrCodeStrategyConfigError, err.Code)
	suite.Equal("risk_fraction must be below 1", err.Message)
	suite.Nil(err.Cause)
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestNewf() {
	err := Newf(ErrCodeDataNotFound, "no bars for %s between %s and %s", "BTC-USD", "2024-01-01", "2024-06-30")
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("no bars for BTC-USD between 2024-01-01 and 2024-06-30", err.Message)
}

func (suite *ErrorTestSuite) TestWrapKeepsCause() {
	cause := errors.New("duckdb: table not found")
	err := Wrap(ErrCodeQueryFailed, "failed to execute query", cause)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal(cause, err.Cause)
	suite.Equal(cause, err.Unwrap())
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestWrapfCauseBeforeFormat() {
	cause := errors.New("connection refused")
	err := Wrapf(ErrCodeMarketDataFetchFailed, cause, "download failed for %s", "ETHUSDT")
	suite.Equal(ErrCodeMarketDataFetchFailed, err.Code)
	suite.Equal("download failed for ETHUSDT", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorStringFormat() {
	err := New(ErrCodeInvalidParameter, "interval must be positive")
	suite.Equal("[100] interval must be positive", err.Error())

	wrapped := Wrap(ErrCodeDataNotFound, "no bars loaded", errors.New("empty file"))
	suite.Equal("[200] no bars loaded: empty file", wrapped.Error())
}

func (suite *ErrorTestSuite) TestGetCode() {
	suite.Equal(ErrCodeOrderFailed, GetCode(New(ErrCodeOrderFailed, "quantity exceeds balance")))

	// The outermost code wins over the wrapped one
	inner := New(ErrCodeDataNotFound, "no bars")
	outer := Wrap(ErrCodeIndicatorNotFound, "cannot compute ATR", inner)
	suite.Equal(ErrCodeIndicatorNotFound, GetCode(outer))

	// Foreign errors map to the unknown code
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestGetCodeThroughStdWrapping() {
	coded := New(ErrCodeBacktestStateNil, "engine state not initialized")
	wrapped := fmt.Errorf("run aborted: %w", coded)
	suite.Equal(ErrCodeBacktestStateNil, GetCode(wrapped))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeStrategyNotLoaded, "no strategy registered")
	suite.True(HasCode(err, ErrCodeStrategyNotLoaded))
	suite.False(HasCode(err, ErrCodeOrderFailed))
}

func (suite *ErrorTestSuite) TestAs() {
	err := New(ErrCodeInvalidParameter, "bad interval")
	var coded *Error
	suite.True(As(err, &coded))
	suite.Equal(ErrCodeInvalidParameter, coded.Code)
}

func (suite *ErrorTestSuite) TestCategoryBases() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeInvalidParameter)
	suite.Equal(ErrorCode(200), ErrCodeDataNotFound)
	suite.Equal(ErrorCode(300), ErrCodeIndicatorNotFound)
	suite.Equal(ErrorCode(400), ErrCodeStrategyNotLoaded)
	suite.Equal(ErrorCode(500), ErrCodeOrderFailed)
	suite.Equal(ErrorCode(600), ErrCodeBacktestStateNil)
	suite.Equal(ErrorCode(700), ErrCodeMarketDataFetchFailed)
}

func (suite *ErrorTestSuite) TestInsufficientData() {
	err := NewInsufficientDataError(20, 7, "BTC-USD", "volume SMA window still filling")
	suite.Equal(20, err.Required)
	suite.Equal(7, err.Actual)
	suite.Equal("BTC-USD", err.Symbol)
	suite.Equal("volume SMA window still filling", err.Error())
}

func (suite *ErrorTestSuite) TestInsufficientDataf() {
	err := NewInsufficientDataErrorf(28, 10, "ETH-USD", "ADX needs %d bars, have %d", 28, 10)
	suite.Equal("ADX needs 28 bars, have 10", err.Message)
}

func (suite *ErrorTestSuite) TestIsInsufficientDataError() {
	err := NewInsufficientDataError(14, 3, "", "stochastic window still filling")
	suite.True(IsInsufficientDataError(err))

	// Detection works through standard wrapping too
	suite.True(IsInsufficientDataError(fmt.Errorf("indicator: %w", err)))

	suite.False(IsInsufficientDataError(errors.New("plain error")))
	suite.False(IsInsufficientDataError(New(ErrCodeInvalidParameter, "bad interval")))
	suite.False(IsInsufficientDataError(nil))
}
