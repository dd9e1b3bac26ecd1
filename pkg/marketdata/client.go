package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/uljio/stratbench/pkg/errors"
	"github.com/uljio/stratbench/pkg/marketdata/provider"
	"github.com/uljio/stratbench/pkg/marketdata/writer"
)

// WriterType defines the type of market data writer.
type WriterType string

const (
	WriterCSV    WriterType = "csv"
	WriterDuckDB WriterType = "duckdb"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance"`
	WriterType    WriterType            `validate:"required,oneof=csv duckdb"`
	DataPath      string                `validate:"required"`
	PolygonApiKey string                `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
	Interval  Timespan  `validate:"required"`
	// WithFundingRate merges perpetual funding rates onto the bars. Only the
	// binance provider supports it.
	WithFundingRate bool
}

// Client downloads market data from a provider and stores it through a
// writer selected by the configuration.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProvider, "invalid client configuration", err)
	}

	var providerConfig any
	if config.ProviderType == provider.ProviderPolygon {
		providerConfig = config.PolygonApiKey
	}

	marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, providerConfig)
	if err != nil {
		return nil, err
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches the bars described by params and writes them to DataPath.
// It returns the path of the written file. The context cancels the download
// between provider pages.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidTimespan, "invalid download parameters", err)
	}

	if !params.Interval.IsValid() {
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported interval: %s", params.Interval)
	}

	marketWriter, err := c.setupWriter(params)
	if err != nil {
		return "", err
	}

	c.provider.ConfigWriter(marketWriter)

	path, err := c.provider.Download(ctx, provider.DownloadOptions{
		Ticker:          params.Ticker,
		StartDate:       params.StartDate,
		EndDate:         params.EndDate,
		Multiplier:      params.Interval.Multiplier(),
		Timespan:        params.Interval.Timespan(),
		WithFundingRate: params.WithFundingRate,
	}, c.onProgress)
	if err != nil {
		return "", err
	}

	return path, nil
}

// setupWriter builds the writer for one download. The output file is named
// TICKER_START_END_INTERVAL with the extension of the chosen format.
func (c *Client) setupWriter(params DownloadParams) (writer.MarketDataWriter, error) {
	if err := os.MkdirAll(c.config.DataPath, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create data path %s", c.config.DataPath)
	}

	baseName := fmt.Sprintf("%s_%s_%s_%s",
		params.Ticker,
		params.StartDate.Format("2006-01-02"),
		params.EndDate.Format("2006-01-02"),
		params.Interval)

	switch c.config.WriterType {
	case WriterCSV:
		return writer.NewCSVWriter(filepath.Join(c.config.DataPath, baseName+".csv")), nil
	case WriterDuckDB:
		return writer.NewDuckDBWriter(filepath.Join(c.config.DataPath, baseName+".parquet")), nil
	default:
		return nil, errors.Newf(errors.ErrCodeMarketDataWriteFailed, "unsupported writer type: %s", c.config.WriterType)
	}
}
