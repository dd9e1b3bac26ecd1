package writer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"github.com/uljio/stratbench/internal/types"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) TestFinalizeExportsParquet() {
	outputPath := filepath.Join(suite.T().TempDir(), "BTC-USD.parquet")

	w := NewDuckDBWriter(outputPath)
	suite.Require().NoError(w.Initialize())

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		bar := types.MarketData{
			Symbol: "BTC-USD",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   100 + float64(i),
			High:   105 + float64(i),
			Low:    99 + float64(i),
			Close:  103 + float64(i),
			Volume: 1000,
		}
		if i%2 == 0 {
			bar.FundingRate = optional.Some(0.0001)
		}

		suite.Require().NoError(w.Write(bar))
	}

	path, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Equal(outputPath, path)
	suite.FileExists(path)
	suite.NoError(w.Close())
}

func (suite *DuckDBWriterTestSuite) TestWriteBeforeInitializeFails() {
	w := NewDuckDBWriter(filepath.Join(suite.T().TempDir(), "x.parquet"))
	suite.Error(w.Write(types.MarketData{Symbol: "BTC-USD", Time: time.Now()}))
}
