package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/schollz/progressbar/v3"

	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"github.com/uljio/stratbench/pkg/marketdata/writer"
)

// PolygonClient downloads aggregate bars from the Polygon REST API. Polygon
// has no perpetual funding endpoint, so DownloadOptions.WithFundingRate is
// ignored.
type PolygonClient struct {
	client *polygon.Client
	writer writer.MarketDataWriter
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon api key is required")
	}

	return &PolygonClient{
		client: polygon.New(apiKey),
		writer: nil,
	}, nil
}

func (c *PolygonClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider. Aggregates stream directly into the writer;
// nothing is buffered since no post-processing merge is needed.
func (c *PolygonClient) Download(ctx context.Context, opts DownloadOptions, onProgress OnDownloadProgress) (path string, err error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer is not configured")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", err
	}

	totalDays := int(opts.EndDate.Sub(opts.StartDate).Hours()/24) + 1

	bar := progressbar.NewOptions(totalDays,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", opts.Ticker)),
		progressbar.OptionShowCount())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     opts.Ticker,
		Multiplier: opts.Multiplier,
		Timespan:   opts.Timespan,
		From:       models.Millis(opts.StartDate),
		To:         models.Millis(opts.EndDate),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	processedCount := 0

	for iter.Next() {
		agg := iter.Item()

		err = c.writer.Write(types.MarketData{
			Symbol: opts.Ticker,
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
		if err != nil {
			c.writer.Close()

			return "", err
		}

		processedCount++

		if processedCount%1000 == 0 {
			daysElapsed := int(time.Time(agg.Timestamp).Sub(opts.StartDate).Hours() / 24)
			bar.Set(daysElapsed)

			if onProgress != nil {
				onProgress(float64(daysElapsed), float64(totalDays),
					fmt.Sprintf("downloading %s aggregates", opts.Ticker))
			}
		}
	}

	if iter.Err() != nil {
		c.writer.Close()

		return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "failed to iterate aggregates for %s", opts.Ticker)
	}

	bar.Finish()

	return c.writer.Finalize()
}
