package provider

import (
	"context"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/uljio/stratbench/pkg/errors"
	"github.com/uljio/stratbench/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

type OnDownloadProgress = func(current float64, total float64, message string)

// DownloadOptions carries the per-download settings shared by all providers.
type DownloadOptions struct {
	Ticker     string
	StartDate  time.Time
	EndDate    time.Time
	Multiplier int
	Timespan   models.Timespan
	// WithFundingRate asks the provider to merge perpetual funding rates onto
	// the bars by forward fill. Providers without a funding endpoint ignore it.
	WithFundingRate bool
}

type Provider interface {
	// ConfigWriter configures the writer the downloaded bars are written to.
	ConfigWriter(writer writer.MarketDataWriter)
	// Download fetches the bars described by opts and writes them through the
	// configured writer. The context cancels the download between pages.
	Download(ctx context.Context, opts DownloadOptions, onProgress OnDownloadProgress) (path string, err error)
}

// NewMarketDataProvider creates a provider of the given type. The config is
// provider specific; Polygon requires its API key string.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient()
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires an API key string config")
		}

		return NewPolygonClient(apiKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
