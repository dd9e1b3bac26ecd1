package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/risk"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"gopkg.in/yaml.v3"
)

const NicheCostReversalName = "niche_cost_reversal"

// NicheCostReversalConfig holds the parameters for the NicheCostReversal strategy.
type NicheCostReversalConfig struct {
	// EmaPeriod is the EMA length of the mean price band
	EmaPeriod int `yaml:"ema_period" json:"ema_period" jsonschema:"title=EMA period,default=20" validate:"gt=0"`
	// StdDevPeriod is the standard deviation length of the band width
	StdDevPeriod int `yaml:"std_dev_period" json:"std_dev_period" jsonschema:"title=StdDev period,default=20" validate:"gt=0"`
	// BandMult is how many standard deviations below the EMA the entry band sits
	BandMult float64 `yaml:"band_mult" json:"band_mult" jsonschema:"title=Band multiplier,default=2" validate:"gt=0"`
	// RsiPeriod is the RSI length
	RsiPeriod int `yaml:"rsi_period" json:"rsi_period" jsonschema:"title=RSI period,default=14" validate:"gt=0"`
	// RsiOversold is the RSI entry threshold
	RsiOversold float64 `yaml:"rsi_oversold" json:"rsi_oversold" jsonschema:"title=RSI oversold threshold,default=30" validate:"gt=0"`
	// RsiOverbought is the RSI exit threshold
	RsiOverbought float64 `yaml:"rsi_overbought" json:"rsi_overbought" jsonschema:"title=RSI overbought threshold,default=70" validate:"gt=0"`
	// VolumePeriod is the SMA length for the volume filter
	VolumePeriod int `yaml:"volume_period" json:"volume_period" jsonschema:"title=Volume SMA period,default=10" validate:"gt=0"`
	// StopPercent sets the stop this fraction below entry
	StopPercent float64 `yaml:"stop_percent" json:"stop_percent" jsonschema:"title=Stop distance fraction,default=0.04" validate:"gt=0,lt=1"`
	// TargetPercent sets the target this fraction above entry
	TargetPercent float64 `yaml:"target_percent" json:"target_percent" jsonschema:"title=Target distance fraction,default=0.075" validate:"gt=0"`
	// MaxHoldBars closes the position after this many bars
	MaxHoldBars int `yaml:"max_hold_bars" json:"max_hold_bars" jsonschema:"title=Max bars to hold,default=480" validate:"gt=0"`
	// RiskFraction is the fraction of equity risked per trade
	RiskFraction float64 `yaml:"risk_fraction" json:"risk_fraction" jsonschema:"title=Risk fraction,default=0.01" validate:"gt=0,lt=1"`
}

func DefaultNicheCostReversalConfig() NicheCostReversalConfig {
	return NicheCostReversalConfig{
		EmaPeriod:     20,
		StdDevPeriod:  20,
		BandMult:      2,
		RsiPeriod:     14,
		RsiOversold:   30,
		RsiOverbought: 70,
		VolumePeriod:  10,
		StopPercent:   0.04,
		TargetPercent: 0.075,
		MaxHoldBars:   480,
		RiskFraction:  0.01,
	}
}

// NicheCostReversal buys capitulation: price stretched two standard
// deviations under its EMA with RSI washed out and volume confirming the
// flush. It holds until price reclaims the EMA, RSI runs overbought, the
// fixed stop or target trips, or the hold limit expires.
type NicheCostReversal struct {
	config NicheCostReversalConfig
	ctx    RuntimeContext

	ema    indicator.Indicator
	stdDev indicator.Indicator
	rsi    indicator.Indicator
	volMA  indicator.Indicator

	entryPrice  float64
	stopPrice   float64
	targetPrice float64
	barsHeld    int
}

// NewNicheCostReversal creates the strategy with default configuration.
func NewNicheCostReversal() StrategyRuntime {
	return &NicheCostReversal{
		config: DefaultNicheCostReversalConfig(),
	}
}

// Name implements StrategyRuntime.
func (s *NicheCostReversal) Name() string {
	return NicheCostReversalName
}

// Initialize implements StrategyRuntime.
func (s *NicheCostReversal) Initialize(config string) error {
	cfg := DefaultNicheCostReversalConfig()

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse niche cost reversal config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid niche cost reversal config", err)
	}

	s.config = cfg

	return nil
}

// InitializeContext implements StrategyRuntime.
func (s *NicheCostReversal) InitializeContext(ctx RuntimeContext) error {
	s.ctx = ctx

	// A new context starts a new run, so bar-to-bar state from a previous
	// data file must not carry over
	s.entryPrice = 0
	s.stopPrice = 0
	s.targetPrice = 0
	s.barsHeld = 0

	s.ema = indicator.NewEMA()
	if err := s.ema.Config(s.config.EmaPeriod); err != nil {
		return err
	}

	s.stdDev = indicator.NewStdDev()
	if err := s.stdDev.Config(s.config.StdDevPeriod); err != nil {
		return err
	}

	s.rsi = indicator.NewRSI()
	if err := s.rsi.Config(s.config.RsiPeriod, s.config.RsiOversold, s.config.RsiOverbought); err != nil {
		return err
	}

	s.volMA = indicator.NewMA()
	if err := s.volMA.Config(s.config.VolumePeriod, indicator.MASourceVolume); err != nil {
		return err
	}

	return nil
}

// GetConfigSchema implements StrategyRuntime.
func (s *NicheCostReversal) GetConfigSchema() (string, error) {
	return ToJSONSchema(NicheCostReversalConfig{})
}

// ProcessData implements StrategyRuntime.
func (s *NicheCostReversal) ProcessData(data types.MarketData) error {
	ictx := s.ctx.IndicatorContext()

	emaValue, err := s.ema.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	stdDevValue, err := s.stdDev.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	rsiValue, err := s.rsi.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	volAvg, err := s.volMA.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	if anyNaN(emaValue, stdDevValue, rsiValue, volAvg) {
		return nil
	}

	position, err := s.ctx.TradingSystem.GetPosition(data.Symbol)
	if err != nil {
		return err
	}

	if position.LongQuantity() > 0 {
		return s.manageOpenPosition(data, emaValue, rsiValue, position)
	}

	s.resetTradeState()

	return s.tryEnter(data, emaValue, stdDevValue, rsiValue, volAvg)
}

func (s *NicheCostReversal) manageOpenPosition(data types.MarketData, emaValue, rsiValue float64, position types.Position) error {
	if s.entryPrice == 0 {
		s.entryPrice = position.GetAverageLongEntryPrice()
		s.stopPrice = s.entryPrice * (1 - s.config.StopPercent)
		s.targetPrice = s.entryPrice * (1 + s.config.TargetPercent)
	}

	s.barsHeld++

	var reason string

	switch {
	case data.Close <= s.stopPrice:
		reason = types.OrderReasonStopLoss
	case data.Close >= s.targetPrice:
		reason = types.OrderReasonTakeProfit
	case data.Close >= emaValue:
		reason = types.OrderReasonSignalExit
	case rsiValue > s.config.RsiOverbought:
		reason = types.OrderReasonSignalExit
	case s.barsHeld >= s.config.MaxHoldBars:
		reason = types.OrderReasonTimeExit
	default:
		return nil
	}

	if err := s.ctx.TradingSystem.ClosePosition(data.Symbol, reason); err != nil {
		return err
	}

	s.resetTradeState()

	markSignal(s.ctx, s.Name(), data, types.SignalTypeSellLong, reason)

	return nil
}

func (s *NicheCostReversal) tryEnter(data types.MarketData, emaValue, stdDevValue, rsiValue, volAvg float64) error {
	lowerBand := emaValue - s.config.BandMult*stdDevValue

	stretched := data.Close < lowerBand
	washedOut := rsiValue < s.config.RsiOversold
	volumeConfirms := data.Volume > volAvg

	if !stretched || !washedOut || !volumeConfirms {
		return nil
	}

	equity, err := s.ctx.TradingSystem.GetEquity()
	if err != nil {
		return err
	}

	stopDistance := data.Close * s.config.StopPercent

	quantity := risk.Quantity(equity, s.config.RiskFraction, stopDistance)
	if quantity <= 0 {
		return nil
	}

	order := marketOrder(s.Name(), data, types.PurchaseTypeBuy, types.PositionTypeLong, quantity, types.OrderReasonStrategy, "capitulation below lower band")

	if err := s.ctx.TradingSystem.PlaceOrder(order); err != nil {
		return err
	}

	s.barsHeld = 0

	markSignal(s.ctx, s.Name(), data, types.SignalTypeBuyLong, "capitulation below lower band")

	return nil
}

func (s *NicheCostReversal) resetTradeState() {
	s.entryPrice = 0
	s.stopPrice = 0
	s.targetPrice = 0
	s.barsHeld = 0
}
