package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/moznion/go-optional"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"github.com/uljio/stratbench/pkg/marketdata/writer"
)

// pageSize is the row limit per request for both the spot klines and the
// futures funding rate endpoints.
const pageSize = 1000

// BinanceClient downloads spot klines and, on request, perpetual funding
// rates from the futures API. Public market data needs no credentials.
type BinanceClient struct {
	client  *binance.Client
	futures *futures.Client
	writer  writer.MarketDataWriter
}

func NewBinanceClient() (Provider, error) {
	return &BinanceClient{
		client:  binance.NewClient("", ""),
		futures: binance.NewFuturesClient("", ""),
	}, nil
}

func (c *BinanceClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider. Klines are paged through by open time; when
// opts.WithFundingRate is set the funding history for the same range is
// fetched and forward filled onto the bar index before anything is written.
func (c *BinanceClient) Download(ctx context.Context, opts DownloadOptions, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer is not configured")
	}

	interval, err := binanceInterval(opts.Timespan, opts.Multiplier)
	if err != nil {
		return "", err
	}

	if err := c.writer.Initialize(); err != nil {
		return "", err
	}

	bars, err := c.downloadKlines(ctx, opts, interval, onProgress)
	if err != nil {
		c.writer.Close()

		return "", err
	}

	if opts.WithFundingRate {
		rates, err := c.downloadFundingRates(ctx, opts)
		if err != nil {
			c.writer.Close()

			return "", err
		}

		MergeFundingRates(bars, rates)
	}

	for _, bar := range bars {
		if err := c.writer.Write(bar); err != nil {
			c.writer.Close()

			return "", err
		}
	}

	return c.writer.Finalize()
}

func (c *BinanceClient) downloadKlines(ctx context.Context, opts DownloadOptions, interval string, onProgress OnDownloadProgress) ([]types.MarketData, error) {
	startMillis := opts.StartDate.UnixMilli()
	endMillis := opts.EndDate.UnixMilli()

	var bars []types.MarketData

	currentStart := startMillis

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		klines, err := c.client.NewKlinesService().
			Symbol(opts.Ticker).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(pageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", opts.Ticker)
		}

		for _, k := range klines {
			bar, err := klineToMarketData(opts.Ticker, k)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis),
				fmt.Sprintf("downloading %s klines", opts.Ticker))
		}

		// Last page.
		if len(klines) < pageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return bars, nil
}

func (c *BinanceClient) downloadFundingRates(ctx context.Context, opts DownloadOptions) ([]FundingRatePoint, error) {
	startMillis := opts.StartDate.UnixMilli()
	endMillis := opts.EndDate.UnixMilli()

	var points []FundingRatePoint

	currentStart := startMillis

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rates, err := c.futures.NewFundingRateService().
			Symbol(opts.Ticker).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(pageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch funding rates for %s", opts.Ticker)
		}

		for _, r := range rates {
			rate, err := strconv.ParseFloat(r.FundingRate, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid funding rate %q", r.FundingRate)
			}

			points = append(points, FundingRatePoint{
				Time: time.UnixMilli(r.FundingTime).UTC(),
				Rate: rate,
			})
		}

		if len(rates) < pageSize {
			break
		}

		currentStart = rates[len(rates)-1].FundingTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return points, nil
}

// FundingRatePoint is one settlement of the perpetual funding rate.
type FundingRatePoint struct {
	Time time.Time
	Rate float64
}

// MergeFundingRates forward fills the funding settlements onto the bars:
// each bar takes the most recent rate at or before its open time. Bars before
// the first settlement keep no funding rate. Both slices must be sorted by
// time ascending.
func MergeFundingRates(bars []types.MarketData, points []FundingRatePoint) {
	idx := -1

	for i := range bars {
		for idx+1 < len(points) && !points[idx+1].Time.After(bars[i].Time) {
			idx++
		}

		if idx >= 0 {
			bars[i].FundingRate = optional.Some(points[idx].Rate)
		}
	}
}

func klineToMarketData(ticker string, k *binance.Kline) (types.MarketData, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid open %q", k.Open)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid high %q", k.High)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid low %q", k.Low)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid close %q", k.Close)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid volume %q", k.Volume)
	}

	return types.MarketData{
		Symbol: ticker,
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// binanceInterval converts a timespan and multiplier to a Binance interval
// string, e.g. (Minute, 15) becomes "15m".
func binanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Second:
		return fmt.Sprintf("%ds", multiplier), nil
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported weekly multiplier: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported monthly multiplier: %d", multiplier)
	default:
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported timespan: %s", timespan)
	}
}
