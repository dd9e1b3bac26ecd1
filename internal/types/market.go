package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// MarketData is one OHLCV bar at a fixed time resolution.
type MarketData struct {
	Id     string    `csv:"id"`
	Symbol string    `csv:"symbol"`
	Time   time.Time `csv:"time"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
	// FundingRate is the perpetual funding rate in effect at this bar.
	// None when the data file carries no funding column.
	FundingRate optional.Option[float64] `csv:"funding_rate"`
}

// AveragePrice returns the midpoint of the bar's high and low.
// The backtest broker fills market orders at this price.
func (m MarketData) AveragePrice() float64 {
	return (m.High + m.Low) / 2
}
