package types

import "github.com/moznion/go-optional"

// MarkShape is the glyph used for a chart annotation. Signal marks are
// drawn as circles.
type MarkShape string

const (
	MarkShapeCircle MarkShape = "circle"
)

// MarkColor encodes the direction of the annotated signal: green for
// entries, red for directional exits, orange for position closes and blue
// for everything else.
type MarkColor string

const (
	MarkColorGreen  MarkColor = "green"
	MarkColorRed    MarkColor = "red"
	MarkColorOrange MarkColor = "orange"
	MarkColorBlue   MarkColor = "blue"
)

// Mark is a chart annotation attached to a bar of market data, recorded by
// strategies and persisted alongside the run results.
type Mark struct {
	MarketDataId string
	Color        MarkColor
	Shape        MarkShape
	Title        string
	Message      string
	Category     string
	Signal       optional.Option[Signal]
}
