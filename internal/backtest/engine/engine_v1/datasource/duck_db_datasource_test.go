package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/pkg/errors"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	source DataSource
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	source, err := NewDataSource("", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.source = source
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	if suite.source != nil {
		suite.Require().NoError(suite.source.Close())
	}
}

func (suite *DuckDBDataSourceTestSuite) writeCSV(name string, content string) string {
	path := filepath.Join(suite.T().TempDir(), name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

const basicCSV = `time,open,high,low,close,volume
2023-01-01 00:00:00,100,110,90,105,1000
2023-01-01 01:00:00,105,115,95,110,1500
2023-01-01 02:00:00,110,120,100,115,2000
2023-01-01 03:00:00,115,125,105,120,2500
`

func (suite *DuckDBDataSourceTestSuite) TestInitializeAndCount() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	count, err := suite.source.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(4, count)

	start := time.Date(2023, 1, 1, 2, 0, 0, 0, time.UTC)
	count, err = suite.source.Count(optional.Some(start), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(2, count)
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllChronological() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	var closes []float64

	for data, err := range suite.source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		suite.Equal("BTC-USD", data.Symbol)
		suite.True(data.FundingRate.IsNone())
		closes = append(closes, data.Close)
	}

	suite.Equal([]float64{105, 110, 115, 120}, closes)
}

func (suite *DuckDBDataSourceTestSuite) TestHeaderNormalization() {
	csv := `Unnamed: 0,Date,Open,High,Low,Close,Volume,Funding Rate
0,2023-01-01 00:00:00,100,110,90,105,1000,-0.0001
1,2023-01-01 01:00:00,105,115,95,110,1500,0.0002
`
	path := suite.writeCSV("ETH-USD.csv", csv)
	suite.Require().NoError(suite.source.Initialize(path))

	data, err := suite.source.ReadFirstData("ETH-USD")
	suite.Require().NoError(err)
	suite.Equal("ETH-USD", data.Symbol)
	suite.Equal(105.0, data.Close)
	suite.Require().True(data.FundingRate.IsSome())
	suite.InDelta(-0.0001, data.FundingRate.Unwrap(), 1e-12)
}

func (suite *DuckDBDataSourceTestSuite) TestEpochSecondsTimeColumn() {
	csv := `timestamp,open,high,low,close,volume
1672531200,100,110,90,105,1000
1672534800,105,115,95,110,1500
`
	path := suite.writeCSV("SOL-USD.csv", csv)
	suite.Require().NoError(suite.source.Initialize(path))

	data, err := suite.source.ReadFirstData("SOL-USD")
	suite.Require().NoError(err)
	suite.Equal(2023, data.Time.Year())
}

func (suite *DuckDBDataSourceTestSuite) TestMissingColumn() {
	csv := `time,open,high,low,volume
2023-01-01 00:00:00,100,110,90,1000
`
	path := suite.writeCSV("BAD.csv", csv)

	err := suite.source.Initialize(path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingColumn))
}

func (suite *DuckDBDataSourceTestSuite) TestReadFirstAndLastData() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	first, err := suite.source.ReadFirstData("BTC-USD")
	suite.Require().NoError(err)
	suite.Equal(105.0, first.Close)

	last, err := suite.source.ReadLastData("BTC-USD")
	suite.Require().NoError(err)
	suite.Equal(120.0, last.Close)

	_, err = suite.source.ReadLastData("UNKNOWN")
	suite.Error(err)
}

func (suite *DuckDBDataSourceTestSuite) TestGetPreviousNumberOfDataPoints() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	end := time.Date(2023, 1, 1, 2, 0, 0, 0, time.UTC)

	data, err := suite.source.GetPreviousNumberOfDataPoints(end, "BTC-USD", 2)
	suite.Require().NoError(err)
	suite.Require().Len(data, 2)
	// Chronological order, ending at the requested bar
	suite.Equal(110.0, data[0].Close)
	suite.Equal(115.0, data[1].Close)
}

func (suite *DuckDBDataSourceTestSuite) TestGetPreviousNumberOfDataPointsInsufficient() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	end := time.Date(2023, 1, 1, 3, 0, 0, 0, time.UTC)

	data, err := suite.source.GetPreviousNumberOfDataPoints(end, "BTC-USD", 10)
	suite.Require().Error(err)
	suite.True(errors.IsInsufficientDataError(err))
	suite.Len(data, 4)
}

func (suite *DuckDBDataSourceTestSuite) TestGetRangeResampled() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 1, 3, 0, 0, 0, time.UTC)

	data, err := suite.source.GetRange(start, end, optional.Some(Interval4h))
	suite.Require().NoError(err)
	suite.Require().Len(data, 1)
	suite.Equal(100.0, data[0].Open)
	suite.Equal(125.0, data[0].High)
	suite.Equal(90.0, data[0].Low)
	suite.Equal(120.0, data[0].Close)
	suite.Equal(7000.0, data[0].Volume)
}

func (suite *DuckDBDataSourceTestSuite) TestGetAllSymbols() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	symbols, err := suite.source.GetAllSymbols()
	suite.Require().NoError(err)
	suite.Equal([]string{"BTC-USD"}, symbols)
}

func (suite *DuckDBDataSourceTestSuite) TestExecuteSQL() {
	path := suite.writeCSV("BTC-USD.csv", basicCSV)
	suite.Require().NoError(suite.source.Initialize(path))

	results, err := suite.source.ExecuteSQL("SELECT MAX(high) AS max_high FROM market_data")
	suite.Require().NoError(err)
	suite.Require().Len(results, 1)
	suite.Equal(125.0, results[0].Values["max_high"])
}
