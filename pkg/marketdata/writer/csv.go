package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
)

// csvHeader is the normalized column layout the backtest data source expects.
var csvHeader = []string{"time", "symbol", "open", "high", "low", "close", "volume", "funding_rate"}

// CSVWriter writes bars to a CSV file with the normalized header. The funding
// rate column is left empty for bars that carry none.
type CSVWriter struct {
	outputPath string
	file       *os.File
	csv        *csv.Writer
}

func NewCSVWriter(outputPath string) MarketDataWriter {
	return &CSVWriter{
		outputPath: outputPath,
	}
}

// Initialize creates the output file and writes the header row.
func (w *CSVWriter) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create output directory", err)
	}

	file, err := os.Create(w.outputPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create csv file", err)
	}

	w.file = file
	w.csv = csv.NewWriter(file)

	if err := w.csv.Write(csvHeader); err != nil {
		file.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write csv header", err)
	}

	return nil
}

// Write implements MarketDataWriter.
func (w *CSVWriter) Write(data types.MarketData) error {
	if w.csv == nil {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "csv writer not initialized")
	}

	funding := ""
	if data.FundingRate.IsSome() {
		funding = strconv.FormatFloat(data.FundingRate.Unwrap(), 'g', -1, 64)
	}

	record := []string{
		data.Time.UTC().Format("2006-01-02 15:04:05"),
		data.Symbol,
		strconv.FormatFloat(data.Open, 'f', -1, 64),
		strconv.FormatFloat(data.High, 'f', -1, 64),
		strconv.FormatFloat(data.Low, 'f', -1, 64),
		strconv.FormatFloat(data.Close, 'f', -1, 64),
		strconv.FormatFloat(data.Volume, 'f', -1, 64),
		funding,
	}

	if err := w.csv.Write(record); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write csv record", err)
	}

	return nil
}

// Finalize flushes buffered rows and closes the file.
func (w *CSVWriter) Finalize() (string, error) {
	if w.csv == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "csv writer not initialized")
	}

	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to flush csv file", err)
	}

	if err := w.file.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to close csv file", err)
	}

	w.file = nil
	w.csv = nil

	return w.outputPath, nil
}

// Close implements MarketDataWriter.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}

	w.csv.Flush()
	err := w.file.Close()
	w.file = nil
	w.csv = nil

	return err
}

// GetOutputPath implements MarketDataWriter.
func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}
