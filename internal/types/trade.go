package types

import (
	"time"
)

type Trade struct {
	Order         Order     `csv:"order"`
	ExecutedAt    time.Time `csv:"executed_at"`
	ExecutedQty   float64   `csv:"executed_qty"`
	ExecutedPrice float64   `csv:"executed_price"`
	// Fee is the fee for this trade
	Fee float64 `csv:"fee"`
	// PnL is the realized profit and loss for this trade. Zero for trades
	// that open or add to a position; fees are deducted on the closing side.
	PnL float64 `csv:"pnl"`
}

// Position represents current holdings of an asset, split by direction.
type Position struct {
	Symbol string `csv:"symbol"`

	TotalLongInQuantity  float64 `csv:"total_long_in_quantity"`
	TotalLongOutQuantity float64 `csv:"total_long_out_quantity"`
	TotalLongInAmount    float64 `csv:"total_long_in_amount"`
	TotalLongOutAmount   float64 `csv:"total_long_out_amount"`

	TotalShortInQuantity  float64 `csv:"total_short_in_quantity"`
	TotalShortOutQuantity float64 `csv:"total_short_out_quantity"`
	TotalShortInAmount    float64 `csv:"total_short_in_amount"`
	TotalShortOutAmount   float64 `csv:"total_short_out_amount"`

	TotalLongInFee   float64 `csv:"total_long_in_fee"`
	TotalLongOutFee  float64 `csv:"total_long_out_fee"`
	TotalShortInFee  float64 `csv:"total_short_in_fee"`
	TotalShortOutFee float64 `csv:"total_short_out_fee"`

	OpenTimestamp time.Time `csv:"open_timestamp"`
	StrategyName  string    `csv:"strategy_name"`
}

// LongQuantity returns the currently held long quantity.
func (p *Position) LongQuantity() float64 {
	return p.TotalLongInQuantity - p.TotalLongOutQuantity
}

// ShortQuantity returns the currently open short quantity.
func (p *Position) ShortQuantity() float64 {
	return p.TotalShortInQuantity - p.TotalShortOutQuantity
}

// IsFlat reports whether the position holds nothing in either direction.
func (p *Position) IsFlat() bool {
	return p.LongQuantity() == 0 && p.ShortQuantity() == 0
}

// GetAverageLongEntryPrice calculates the average long entry price including fees.
func (p *Position) GetAverageLongEntryPrice() float64 {
	if p.TotalLongInQuantity == 0 {
		return 0
	}

	return (p.TotalLongInAmount + p.TotalLongInFee) / p.TotalLongInQuantity
}

// GetAverageShortEntryPrice calculates the average short entry price net of fees.
func (p *Position) GetAverageShortEntryPrice() float64 {
	if p.TotalShortInQuantity == 0 {
		return 0
	}

	return (p.TotalShortInAmount - p.TotalShortInFee) / p.TotalShortInQuantity
}
