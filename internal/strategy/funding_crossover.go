package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/risk"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"gopkg.in/yaml.v3"
)

const FundingCrossoverName = "funding_crossover"

// FundingCrossoverConfig holds the parameters for the FundingCrossover strategy.
type FundingCrossoverConfig struct {
	// EmaPeriod is the EMA length for the price crossover
	EmaPeriod int `yaml:"ema_period" json:"ema_period" jsonschema:"title=EMA period,default=20" validate:"gt=0"`
	// VolumePeriod is the SMA length for the volume filter
	VolumePeriod int `yaml:"volume_period" json:"volume_period" jsonschema:"title=Volume SMA period,default=20" validate:"gt=0"`
	// VolumeMult is the multiple of average volume required for entry
	VolumeMult float64 `yaml:"volume_mult" json:"volume_mult" jsonschema:"title=Volume multiplier,default=1.5" validate:"gt=0"`
	// TrailPercent is the trailing stop distance from the post-entry high
	TrailPercent float64 `yaml:"trail_percent" json:"trail_percent" jsonschema:"title=Trailing stop percent,default=0.02" validate:"gt=0,lt=1"`
	// TakeProfitPercent is the take profit distance from the entry price
	TakeProfitPercent float64 `yaml:"take_profit_percent" json:"take_profit_percent" jsonschema:"title=Take profit percent,default=0.04" validate:"gt=0,lt=1"`
	// MaxHoldBars closes the position after this many bars
	MaxHoldBars int `yaml:"max_hold_bars" json:"max_hold_bars" jsonschema:"title=Max holding bars,default=8" validate:"gt=0"`
	// RiskFraction is the fraction of equity risked per trade
	RiskFraction float64 `yaml:"risk_fraction" json:"risk_fraction" jsonschema:"title=Risk fraction,default=0.01" validate:"gt=0,lt=1"`
}

func DefaultFundingCrossoverConfig() FundingCrossoverConfig {
	return FundingCrossoverConfig{
		EmaPeriod:         20,
		VolumePeriod:      20,
		VolumeMult:        1.5,
		TrailPercent:      0.02,
		TakeProfitPercent: 0.04,
		MaxHoldBars:       8,
		RiskFraction:      0.01,
	}
}

// FundingCrossover goes long when price crosses above its EMA on elevated
// volume while the funding rate flips negative, meaning shorts pay longs.
// Long only.
type FundingCrossover struct {
	config FundingCrossoverConfig
	ctx    RuntimeContext

	ema   indicator.Indicator
	volMA indicator.Indicator

	prevClose   float64
	prevEMA     float64
	prevFunding optional.Option[float64]
	hasPrev     bool

	inPosition bool
	entryPrice float64
	maxHigh    float64
	barsHeld   int
}

// NewFundingCrossover creates the strategy with default configuration.
func NewFundingCrossover() StrategyRuntime {
	return &FundingCrossover{
		config: DefaultFundingCrossoverConfig(),
	}
}

// Name implements StrategyRuntime.
func (s *FundingCrossover) Name() string {
	return FundingCrossoverName
}

// Initialize implements StrategyRuntime.
func (s *FundingCrossover) Initialize(config string) error {
	cfg := DefaultFundingCrossoverConfig()

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse funding crossover config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid funding crossover config", err)
	}

	s.config = cfg

	return nil
}

// InitializeContext implements StrategyRuntime.
func (s *FundingCrossover) InitializeContext(ctx RuntimeContext) error {
	s.ctx = ctx

	// A new context starts a new run, so bar-to-bar state from a previous
	// data file must not carry over
	s.prevClose = 0
	s.prevEMA = 0
	s.prevFunding = optional.None[float64]()
	s.hasPrev = false
	s.inPosition = false
	s.entryPrice = 0
	s.maxHigh = 0
	s.barsHeld = 0

	s.ema = indicator.NewEMA()
	if err := s.ema.Config(s.config.EmaPeriod); err != nil {
		return err
	}

	s.volMA = indicator.NewMA()
	if err := s.volMA.Config(s.config.VolumePeriod, indicator.MASourceVolume); err != nil {
		return err
	}

	return nil
}

// GetConfigSchema implements StrategyRuntime.
func (s *FundingCrossover) GetConfigSchema() (string, error) {
	return ToJSONSchema(FundingCrossoverConfig{})
}

// ProcessData implements StrategyRuntime.
func (s *FundingCrossover) ProcessData(data types.MarketData) error {
	ictx := s.ctx.IndicatorContext()

	emaValue, err := s.ema.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		// Not enough history yet, remember the bar and wait
		s.rememberBar(data, 0, false)

		return nil
	}

	volAvg, err := s.volMA.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		s.rememberBar(data, emaValue, !anyNaN(emaValue))

		return nil
	}

	if anyNaN(emaValue, volAvg) {
		s.rememberBar(data, emaValue, !anyNaN(emaValue))

		return nil
	}

	position, err := s.ctx.TradingSystem.GetPosition(data.Symbol)
	if err != nil {
		return err
	}

	if position.LongQuantity() > 0 {
		err = s.manageOpenPosition(data, position)
	} else {
		s.inPosition = false
		err = s.tryEnter(data, emaValue, volAvg)
	}

	s.rememberBar(data, emaValue, true)

	return err
}

func (s *FundingCrossover) manageOpenPosition(data types.MarketData, position types.Position) error {
	if !s.inPosition {
		s.inPosition = true
		s.entryPrice = position.GetAverageLongEntryPrice()
		s.maxHigh = data.High
		s.barsHeld = 0
	} else {
		s.barsHeld++

		if data.High > s.maxHigh {
			s.maxHigh = data.High
		}
	}

	// Exit ladder: trailing stop, take profit, funding emergency, time exit
	switch {
	case data.Low <= s.maxHigh*(1-s.config.TrailPercent):
		return s.close(data, types.OrderReasonTrailingStop, fmt.Sprintf("trailing stop from high %.2f", s.maxHigh))
	case data.Close >= s.entryPrice*(1+s.config.TakeProfitPercent):
		return s.close(data, types.OrderReasonTakeProfit, fmt.Sprintf("take profit from entry %.2f", s.entryPrice))
	case data.FundingRate.IsSome() && data.FundingRate.Unwrap() > 0:
		return s.close(data, types.OrderReasonSignalExit, "funding rate turned positive")
	case s.barsHeld >= s.config.MaxHoldBars:
		return s.close(data, types.OrderReasonTimeExit, fmt.Sprintf("held %d bars", s.barsHeld))
	}

	return nil
}

func (s *FundingCrossover) close(data types.MarketData, reason string, message string) error {
	s.inPosition = false

	if err := s.ctx.TradingSystem.ClosePosition(data.Symbol, reason); err != nil {
		return err
	}

	markSignal(s.ctx, s.Name(), data, types.SignalTypeClosePosition, message)

	return nil
}

func (s *FundingCrossover) tryEnter(data types.MarketData, emaValue float64, volAvg float64) error {
	if !s.hasPrev {
		return nil
	}

	crossedUp := s.prevClose < s.prevEMA && data.Close > emaValue
	volumeOK := data.Volume > s.config.VolumeMult*volAvg

	if !crossedUp || !volumeOK || !s.fundingFlippedNegative(data) {
		return nil
	}

	equity, err := s.ctx.TradingSystem.GetEquity()
	if err != nil {
		return err
	}

	quantity := risk.Quantity(equity, s.config.RiskFraction, data.Close*s.config.TrailPercent)
	if quantity <= 0 {
		return nil
	}

	order := marketOrder(s.Name(), data, types.PurchaseTypeBuy, types.PositionTypeLong, quantity, types.OrderReasonStrategy, "EMA crossover with funding flip")

	if err := s.ctx.TradingSystem.PlaceOrder(order); err != nil {
		return err
	}

	markSignal(s.ctx, s.Name(), data, types.SignalTypeBuyLong, "EMA crossover entry")

	return nil
}

// fundingFlippedNegative is true when funding went from non-negative to
// negative on this bar. Data without a funding column passes the filter.
func (s *FundingCrossover) fundingFlippedNegative(data types.MarketData) bool {
	if data.FundingRate.IsNone() {
		return true
	}

	if s.prevFunding.IsNone() {
		return false
	}

	return s.prevFunding.Unwrap() >= 0 && data.FundingRate.Unwrap() < 0
}

func (s *FundingCrossover) rememberBar(data types.MarketData, emaValue float64, haveEMA bool) {
	s.prevClose = data.Close
	s.prevEMA = emaValue
	s.prevFunding = data.FundingRate
	s.hasPrev = haveEMA
}
