package types

import "time"

type SignalType string

const (
	// SignalTypeBuyLong is a signal that tells the strategy to open a long position
	SignalTypeBuyLong SignalType = "buy_long"
	// SignalTypeSellLong is a signal that tells the strategy to close a long position
	SignalTypeSellLong SignalType = "sell_long"
	// SignalTypeBuyShort is a signal that tells the strategy to close a short position
	SignalTypeBuyShort SignalType = "buy_short"
	// SignalTypeSellShort is a signal that tells the strategy to open a short position
	SignalTypeSellShort SignalType = "sell_short"
	// SignalTypeNoAction is a signal that tells the strategy to take no action
	SignalTypeNoAction SignalType = "no_action"
	// SignalTypeClosePosition is a signal that tells the strategy to close a position
	SignalTypeClosePosition SignalType = "close_position"
	// SignalTypeWait is a signal that tells the strategy to wait for more confirmation
	SignalTypeWait SignalType = "wait"
)

type Signal struct {
	// Time is the time of the signal
	Time time.Time
	// Type is the type of the signal
	Type SignalType
	// Name is the name of the signal
	Name string
	// Reason is the reason for the signal
	Reason string
	// RawValue is the raw value of the signal
	RawValue any
	// Symbol is the symbol of the signal
	Symbol string
	// Indicator is the indicator that generated the signal
	Indicator IndicatorType
}
