package strategy

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/risk"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"gopkg.in/yaml.v3"
)

const CorrelativeReversionName = "correlative_reversion"

// CorrelativeReversionConfig holds the parameters for the CorrelativeReversion strategy.
type CorrelativeReversionConfig struct {
	// LookbackPeriod is the window of the price mean and deviation
	LookbackPeriod int `yaml:"lookback_period" json:"lookback_period" jsonschema:"title=Lookback period,default=60" validate:"gt=1"`
	// EntryZ opens a position when |z| exceeds this value
	EntryZ float64 `yaml:"entry_z" json:"entry_z" jsonschema:"title=Entry z-score,default=2" validate:"gt=0"`
	// ExitZ closes a position when |z| falls under this value
	ExitZ float64 `yaml:"exit_z" json:"exit_z" jsonschema:"title=Exit z-score,default=0.5" validate:"gt=0"`
	// StopZ stops out when z stretches past this value against the position
	StopZ float64 `yaml:"stop_z" json:"stop_z" jsonschema:"title=Stop z-score,default=3" validate:"gt=0"`
	// RiskFraction is the fraction of equity risked per trade
	RiskFraction float64 `yaml:"risk_fraction" json:"risk_fraction" jsonschema:"title=Risk fraction,default=0.01" validate:"gt=0,lt=1"`
	// StopDistancePercent is the assumed adverse move used for sizing
	StopDistancePercent float64 `yaml:"stop_distance_percent" json:"stop_distance_percent" jsonschema:"title=Sizing stop distance fraction,default=0.02" validate:"gt=0,lt=1"`
}

func DefaultCorrelativeReversionConfig() CorrelativeReversionConfig {
	return CorrelativeReversionConfig{
		LookbackPeriod:      60,
		EntryZ:              2,
		ExitZ:               0.5,
		StopZ:               3,
		RiskFraction:        0.01,
		StopDistancePercent: 0.02,
	}
}

// CorrelativeReversion fades statistical extremes in both directions. It
// scores each close against its rolling mean and deviation, shorts stretched
// prints above the band and buys stretched prints below it, then unwinds when
// the score decays back toward zero or stops out when the stretch deepens.
type CorrelativeReversion struct {
	config CorrelativeReversionConfig
	ctx    RuntimeContext

	mean   indicator.Indicator
	stdDev indicator.Indicator
}

// NewCorrelativeReversion creates the strategy with default configuration.
func NewCorrelativeReversion() StrategyRuntime {
	return &CorrelativeReversion{
		config: DefaultCorrelativeReversionConfig(),
	}
}

// Name implements StrategyRuntime.
func (s *CorrelativeReversion) Name() string {
	return CorrelativeReversionName
}

// Initialize implements StrategyRuntime.
func (s *CorrelativeReversion) Initialize(config string) error {
	cfg := DefaultCorrelativeReversionConfig()

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse correlative reversion config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid correlative reversion config", err)
	}

	if cfg.ExitZ >= cfg.EntryZ || cfg.EntryZ >= cfg.StopZ {
		return errors.New(errors.ErrCodeStrategyConfigError, "z thresholds must satisfy exit < entry < stop")
	}

	s.config = cfg

	return nil
}

// InitializeContext implements StrategyRuntime.
func (s *CorrelativeReversion) InitializeContext(ctx RuntimeContext) error {
	s.ctx = ctx

	s.mean = indicator.NewMA()
	if err := s.mean.Config(s.config.LookbackPeriod); err != nil {
		return err
	}

	s.stdDev = indicator.NewStdDev()
	if err := s.stdDev.Config(s.config.LookbackPeriod); err != nil {
		return err
	}

	return nil
}

// GetConfigSchema implements StrategyRuntime.
func (s *CorrelativeReversion) GetConfigSchema() (string, error) {
	return ToJSONSchema(CorrelativeReversionConfig{})
}

// ProcessData implements StrategyRuntime.
func (s *CorrelativeReversion) ProcessData(data types.MarketData) error {
	ictx := s.ctx.IndicatorContext()

	meanValue, err := s.mean.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	stdDevValue, err := s.stdDev.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	// A flat window makes the score undefined
	if anyNaN(meanValue, stdDevValue) || stdDevValue <= 0 {
		return nil
	}

	zScore := (data.Close - meanValue) / stdDevValue
	if math.IsNaN(zScore) {
		return nil
	}

	position, err := s.ctx.TradingSystem.GetPosition(data.Symbol)
	if err != nil {
		return err
	}

	switch {
	case position.LongQuantity() > 0:
		return s.manageLong(data, zScore)
	case position.ShortQuantity() > 0:
		return s.manageShort(data, zScore)
	default:
		return s.tryEnter(data, zScore)
	}
}

func (s *CorrelativeReversion) manageLong(data types.MarketData, zScore float64) error {
	var reason string

	switch {
	case zScore < -s.config.StopZ:
		reason = types.OrderReasonStopLoss
	case math.Abs(zScore) < s.config.ExitZ:
		reason = types.OrderReasonSignalExit
	default:
		return nil
	}

	if err := s.ctx.TradingSystem.ClosePosition(data.Symbol, reason); err != nil {
		return err
	}

	markSignal(s.ctx, s.Name(), data, types.SignalTypeSellLong, reason)

	return nil
}

func (s *CorrelativeReversion) manageShort(data types.MarketData, zScore float64) error {
	var reason string

	switch {
	case zScore > s.config.StopZ:
		reason = types.OrderReasonStopLoss
	case math.Abs(zScore) < s.config.ExitZ:
		reason = types.OrderReasonSignalExit
	default:
		return nil
	}

	if err := s.ctx.TradingSystem.ClosePosition(data.Symbol, reason); err != nil {
		return err
	}

	markSignal(s.ctx, s.Name(), data, types.SignalTypeBuyShort, reason)

	return nil
}

func (s *CorrelativeReversion) tryEnter(data types.MarketData, zScore float64) error {
	if math.Abs(zScore) <= s.config.EntryZ {
		return nil
	}

	equity, err := s.ctx.TradingSystem.GetEquity()
	if err != nil {
		return err
	}

	stopDistance := data.Close * s.config.StopDistancePercent

	quantity := risk.Quantity(equity, s.config.RiskFraction, stopDistance)
	if quantity <= 0 {
		return nil
	}

	side := types.PurchaseTypeSell
	positionType := types.PositionTypeShort
	signal := types.SignalTypeSellShort
	message := "stretched above rolling mean"

	if zScore < 0 {
		side = types.PurchaseTypeBuy
		positionType = types.PositionTypeLong
		signal = types.SignalTypeBuyLong
		message = "stretched below rolling mean"
	}

	order := marketOrder(s.Name(), data, side, positionType, quantity, types.OrderReasonStrategy, message)

	if err := s.ctx.TradingSystem.PlaceOrder(order); err != nil {
		return err
	}

	markSignal(s.ctx, s.Name(), data, signal, message)

	return nil
}
