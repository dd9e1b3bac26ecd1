package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uljio/stratbench/pkg/marketdata/provider"
)

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(ClientConfig{}, nil)
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{
		ProviderType: provider.ProviderPolygon,
		WriterType:   WriterDuckDB,
		DataPath:     t.TempDir(),
	}, nil)
	assert.Error(t, err, "polygon requires an api key")

	_, err = NewClient(ClientConfig{
		ProviderType: provider.ProviderType("kraken"),
		WriterType:   WriterCSV,
		DataPath:     t.TempDir(),
	}, nil)
	assert.Error(t, err)

	client, err := NewClient(ClientConfig{
		ProviderType: provider.ProviderBinance,
		WriterType:   WriterCSV,
		DataPath:     t.TempDir(),
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestDownloadValidatesParams(t *testing.T) {
	client, err := NewClient(ClientConfig{
		ProviderType: provider.ProviderBinance,
		WriterType:   WriterCSV,
		DataPath:     t.TempDir(),
	}, nil)
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err = client.Download(context.Background(), DownloadParams{
		Ticker:    "",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 1),
		Interval:  TimespanOneHour,
	})
	assert.Error(t, err, "ticker is required")

	_, err = client.Download(context.Background(), DownloadParams{
		Ticker:    "BTCUSDT",
		StartDate: start,
		EndDate:   start,
		Interval:  TimespanOneHour,
	})
	assert.Error(t, err, "end date must follow start date")

	_, err = client.Download(context.Background(), DownloadParams{
		Ticker:    "BTCUSDT",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 1),
		Interval:  Timespan("7m"),
	})
	assert.Error(t, err, "interval must be supported")
}
