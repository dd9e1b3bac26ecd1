package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/risk"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"gopkg.in/yaml.v3"
)

const HolisticDecompositionName = "holistic_decomposition"

// HolisticDecompositionConfig holds the parameters for the HolisticDecomposition strategy.
type HolisticDecompositionConfig struct {
	// FastEmaPeriod is the shorter trend EMA length
	FastEmaPeriod int `yaml:"fast_ema_period" json:"fast_ema_period" jsonschema:"title=Fast EMA period,default=50" validate:"gt=0"`
	// SlowEmaPeriod is the longer trend EMA length
	SlowEmaPeriod int `yaml:"slow_ema_period" json:"slow_ema_period" jsonschema:"title=Slow EMA period,default=200" validate:"gt=0"`
	// RsiPeriod is the RSI length
	RsiPeriod int `yaml:"rsi_period" json:"rsi_period" jsonschema:"title=RSI period,default=14" validate:"gt=0"`
	// RsiLongThreshold is the RSI floor for a long entry
	RsiLongThreshold float64 `yaml:"rsi_long_threshold" json:"rsi_long_threshold" jsonschema:"title=RSI long threshold,default=55" validate:"gt=0"`
	// RsiShortThreshold is the RSI ceiling for a short entry
	RsiShortThreshold float64 `yaml:"rsi_short_threshold" json:"rsi_short_threshold" jsonschema:"title=RSI short threshold,default=45" validate:"gt=0"`
	// VolumePeriod is the SMA length for the volume filter
	VolumePeriod int `yaml:"volume_period" json:"volume_period" jsonschema:"title=Volume SMA period,default=20" validate:"gt=0"`
	// VolumeMult is the multiple of average volume required for entry
	VolumeMult float64 `yaml:"volume_mult" json:"volume_mult" jsonschema:"title=Volume multiplier,default=1.5" validate:"gt=0"`
	// AtrPeriod is the ATR length
	AtrPeriod int `yaml:"atr_period" json:"atr_period" jsonschema:"title=ATR period,default=14" validate:"gt=0"`
	// StopAtr sets the stop this many entry ATRs away from entry
	StopAtr float64 `yaml:"stop_atr" json:"stop_atr" jsonschema:"title=Stop distance in ATRs,default=1.5" validate:"gt=0"`
	// TargetMult sets the target at this multiple of the stop distance
	TargetMult float64 `yaml:"target_mult" json:"target_mult" jsonschema:"title=Target to stop ratio,default=3" validate:"gt=0"`
	// RiskFraction is the fraction of equity risked per trade
	RiskFraction float64 `yaml:"risk_fraction" json:"risk_fraction" jsonschema:"title=Risk fraction,default=0.01" validate:"gt=0,lt=1"`
}

func DefaultHolisticDecompositionConfig() HolisticDecompositionConfig {
	return HolisticDecompositionConfig{
		FastEmaPeriod:     50,
		SlowEmaPeriod:     200,
		RsiPeriod:         14,
		RsiLongThreshold:  55,
		RsiShortThreshold: 45,
		VolumePeriod:      20,
		VolumeMult:        1.5,
		AtrPeriod:         14,
		StopAtr:           1.5,
		TargetMult:        3,
		RiskFraction:      0.01,
	}
}

// HolisticDecomposition trades with the stacked trend. Longs need price over
// the fast EMA, the fast EMA over the slow one, RSI confirming momentum and a
// volume push; shorts mirror every condition. Stop and target are frozen from
// the ATR at entry, and the stop is always evaluated before the target.
type HolisticDecomposition struct {
	config HolisticDecompositionConfig
	ctx    RuntimeContext

	fastEma indicator.Indicator
	slowEma indicator.Indicator
	rsi     indicator.Indicator
	volMA   indicator.Indicator
	atr     indicator.Indicator

	positionType types.PositionType
	entryAtr     float64
	entryPrice   float64
	stopPrice    float64
	targetPrice  float64
}

// NewHolisticDecomposition creates the strategy with default configuration.
func NewHolisticDecomposition() StrategyRuntime {
	return &HolisticDecomposition{
		config: DefaultHolisticDecompositionConfig(),
	}
}

// Name implements StrategyRuntime.
func (s *HolisticDecomposition) Name() string {
	return HolisticDecompositionName
}

// Initialize implements StrategyRuntime.
func (s *HolisticDecomposition) Initialize(config string) error {
	cfg := DefaultHolisticDecompositionConfig()

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse holistic decomposition config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid holistic decomposition config", err)
	}

	if cfg.FastEmaPeriod >= cfg.SlowEmaPeriod {
		return errors.New(errors.ErrCodeStrategyConfigError, "fast EMA period must be shorter than slow EMA period")
	}

	s.config = cfg

	return nil
}

// InitializeContext implements StrategyRuntime.
func (s *HolisticDecomposition) InitializeContext(ctx RuntimeContext) error {
	s.ctx = ctx

	// A new context starts a new run, so bar-to-bar state from a previous
	// data file must not carry over
	s.positionType = ""
	s.entryAtr = 0
	s.entryPrice = 0
	s.stopPrice = 0
	s.targetPrice = 0

	s.fastEma = indicator.NewEMA()
	if err := s.fastEma.Config(s.config.FastEmaPeriod); err != nil {
		return err
	}

	s.slowEma = indicator.NewEMA()
	if err := s.slowEma.Config(s.config.SlowEmaPeriod); err != nil {
		return err
	}

	s.rsi = indicator.NewRSI()
	if err := s.rsi.Config(s.config.RsiPeriod, s.config.RsiShortThreshold, s.config.RsiLongThreshold); err != nil {
		return err
	}

	s.volMA = indicator.NewMA()
	if err := s.volMA.Config(s.config.VolumePeriod, indicator.MASourceVolume); err != nil {
		return err
	}

	s.atr = indicator.NewATR()
	if err := s.atr.Config(s.config.AtrPeriod); err != nil {
		return err
	}

	return nil
}

// GetConfigSchema implements StrategyRuntime.
func (s *HolisticDecomposition) GetConfigSchema() (string, error) {
	return ToJSONSchema(HolisticDecompositionConfig{})
}

// ProcessData implements StrategyRuntime.
func (s *HolisticDecomposition) ProcessData(data types.MarketData) error {
	ictx := s.ctx.IndicatorContext()

	fastValue, err := s.fastEma.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	slowValue, err := s.slowEma.RawValue(data.Symbol, data.Time, ictx)
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

	atrValue, err := s.atr.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	if anyNaN(fastValue, slowValue, rsiValue, volAvg, atrValue) || atrValue <= 0 {
		return nil
	}

	position, err := s.ctx.TradingSystem.GetPosition(data.Symbol)
	if err != nil {
		return err
	}

	if position.LongQuantity() > 0 || position.ShortQuantity() > 0 {
		return s.manageOpenPosition(data, position, atrValue)
	}

	s.resetTradeState()

	return s.tryEnter(data, fastValue, slowValue, rsiValue, volAvg, atrValue)
}

func (s *HolisticDecomposition) manageOpenPosition(data types.MarketData, position types.Position, atrValue float64) error {
	if s.entryPrice == 0 {
		if position.LongQuantity() > 0 {
			s.positionType = types.PositionTypeLong
		} else {
			s.positionType = types.PositionTypeShort
		}

		// Positions opened before this run have no recorded entry ATR
		if s.entryAtr == 0 {
			s.entryAtr = atrValue
		}

		stopDistance := s.config.StopAtr * s.entryAtr

		if s.positionType == types.PositionTypeLong {
			s.entryPrice = position.GetAverageLongEntryPrice()
			s.stopPrice = s.entryPrice - stopDistance
			s.targetPrice = s.entryPrice + s.config.TargetMult*stopDistance
		} else {
			s.entryPrice = position.GetAverageShortEntryPrice()
			s.stopPrice = s.entryPrice + stopDistance
			s.targetPrice = s.entryPrice - s.config.TargetMult*stopDistance
		}
	}

	var (
		reason string
		signal types.SignalType
	)

	// Stop is checked first so a bar that sweeps both levels loses
	if s.positionType == types.PositionTypeLong {
		signal = types.SignalTypeSellLong

		switch {
		case data.Close <= s.stopPrice:
			reason = types.OrderReasonStopLoss
		case data.Close >= s.targetPrice:
			reason = types.OrderReasonTakeProfit
		default:
			return nil
		}
	} else {
		signal = types.SignalTypeBuyShort

		switch {
		case data.Close >= s.stopPrice:
			reason = types.OrderReasonStopLoss
		case data.Close <= s.targetPrice:
			reason = types.OrderReasonTakeProfit
		default:
			return nil
		}
	}

	if err := s.ctx.TradingSystem.ClosePosition(data.Symbol, reason); err != nil {
		return err
	}

	s.resetTradeState()

	markSignal(s.ctx, s.Name(), data, signal, reason)

	return nil
}

func (s *HolisticDecomposition) tryEnter(data types.MarketData, fastValue, slowValue, rsiValue, volAvg, atrValue float64) error {
	volumePush := data.Volume > s.config.VolumeMult*volAvg
	if !volumePush {
		return nil
	}

	longSetup := data.Close > fastValue && fastValue > slowValue && rsiValue > s.config.RsiLongThreshold
	shortSetup := data.Close < fastValue && fastValue < slowValue && rsiValue < s.config.RsiShortThreshold

	if !longSetup && !shortSetup {
		return nil
	}

	equity, err := s.ctx.TradingSystem.GetEquity()
	if err != nil {
		return err
	}

	stopDistance := s.config.StopAtr * atrValue

	quantity := risk.Quantity(equity, s.config.RiskFraction, stopDistance)
	if quantity <= 0 {
		return nil
	}

	side := types.PurchaseTypeBuy
	positionType := types.PositionTypeLong
	signal := types.SignalTypeBuyLong
	message := "stacked uptrend with momentum"

	if shortSetup {
		side = types.PurchaseTypeSell
		positionType = types.PositionTypeShort
		signal = types.SignalTypeSellShort
		message = "stacked downtrend with momentum"
	}

	order := marketOrder(s.Name(), data, side, positionType, quantity, types.OrderReasonStrategy, message)

	if err := s.ctx.TradingSystem.PlaceOrder(order); err != nil {
		return err
	}

	s.positionType = positionType
	s.entryAtr = atrValue

	markSignal(s.ctx, s.Name(), data, signal, message)

	return nil
}

func (s *HolisticDecomposition) resetTradeState() {
	s.entryAtr = 0
	s.entryPrice = 0
	s.stopPrice = 0
	s.targetPrice = 0
}
