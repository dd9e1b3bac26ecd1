package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/risk"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"gopkg.in/yaml.v3"
)

const ConfluentOversoldName = "confluent_oversold"

// ConfluentOversoldConfig holds the parameters for the ConfluentOversold strategy.
type ConfluentOversoldConfig struct {
	// StochFastK, StochSlowK and StochSlowD are the slow stochastic periods
	StochFastK int `yaml:"stoch_fast_k" json:"stoch_fast_k" jsonschema:"title=Stochastic fast K period,default=14" validate:"gt=0"`
	StochSlowK int `yaml:"stoch_slow_k" json:"stoch_slow_k" jsonschema:"title=Stochastic slow K period,default=3" validate:"gt=0"`
	StochSlowD int `yaml:"stoch_slow_d" json:"stoch_slow_d" jsonschema:"title=Stochastic slow D period,default=3" validate:"gt=0"`
	// StochOversold is the %K level below which the market counts as oversold
	StochOversold float64 `yaml:"stoch_oversold" json:"stoch_oversold" jsonschema:"title=Stochastic oversold level,default=20" validate:"gt=0"`
	// CciPeriod is the CCI length
	CciPeriod int `yaml:"cci_period" json:"cci_period" jsonschema:"title=CCI period,default=20" validate:"gt=0"`
	// CciOversold is the CCI level below which the market counts as oversold
	CciOversold float64 `yaml:"cci_oversold" json:"cci_oversold" jsonschema:"title=CCI oversold level,default=-100" validate:"lt=0"`
	// VolumePeriod is the SMA length for the volume dry-up filter
	VolumePeriod int `yaml:"volume_period" json:"volume_period" jsonschema:"title=Volume SMA period,default=5" validate:"gt=0"`
	// ObvWindow is the OBV lookback used for the divergence exit
	ObvWindow int `yaml:"obv_window" json:"obv_window" jsonschema:"title=OBV window,default=50" validate:"gt=1"`
	// TakeProfitPercent is the take profit distance from the entry price
	TakeProfitPercent float64 `yaml:"take_profit_percent" json:"take_profit_percent" jsonschema:"title=Take profit percent,default=0.05" validate:"gt=0,lt=1"`
	// StopLossPercent is the stop loss distance from the entry price
	StopLossPercent float64 `yaml:"stop_loss_percent" json:"stop_loss_percent" jsonschema:"title=Stop loss percent,default=0.04" validate:"gt=0,lt=1"`
	// BreakevenTrigger moves the stop to breakeven once close exceeds entry by this fraction
	BreakevenTrigger float64 `yaml:"breakeven_trigger" json:"breakeven_trigger" jsonschema:"title=Breakeven trigger percent,default=0.02" validate:"gt=0,lt=1"`
	// RiskFraction is the fraction of initial capital risked per trade
	RiskFraction float64 `yaml:"risk_fraction" json:"risk_fraction" jsonschema:"title=Risk fraction,default=0.01" validate:"gt=0,lt=1"`
}

func DefaultConfluentOversoldConfig() ConfluentOversoldConfig {
	return ConfluentOversoldConfig{
		StochFastK:        14,
		StochSlowK:        3,
		StochSlowD:        3,
		StochOversold:     20,
		CciPeriod:         20,
		CciOversold:       -100,
		VolumePeriod:      5,
		ObvWindow:         50,
		TakeProfitPercent: 0.05,
		StopLossPercent:   0.04,
		BreakevenTrigger:  0.02,
		RiskFraction:      0.01,
	}
}

// ConfluentOversold buys when several oversold measures agree at once:
// stochastic %K below its floor with %D still declining, CCI deeply negative
// and volume drying up. Exits on take profit, a breakeven-trailing stop, or a
// bullish OBV divergence. Long only.
type ConfluentOversold struct {
	config ConfluentOversoldConfig
	ctx    RuntimeContext

	stoch *indicator.Stochastic
	cci   indicator.Indicator
	volMA indicator.Indicator
	obv   *indicator.OBV

	prevSlowD float64
	hasPrev   bool

	// Divergence baselines reset to the entry bar on every trade
	priorLow    float64
	priorObvLow float64
	hasPriorLow bool

	inPosition     bool
	entryPrice     float64
	stopPrice      float64
	initialCapital float64
	lowSinceEntry  float64
	obvSinceEntry  float64
}

// NewConfluentOversold creates the strategy with default configuration.
func NewConfluentOversold() StrategyRuntime {
	return &ConfluentOversold{
		config: DefaultConfluentOversoldConfig(),
	}
}

// Name implements StrategyRuntime.
func (s *ConfluentOversold) Name() string {
	return ConfluentOversoldName
}

// Initialize implements StrategyRuntime.
func (s *ConfluentOversold) Initialize(config string) error {
	cfg := DefaultConfluentOversoldConfig()

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse confluent oversold config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid confluent oversold config", err)
	}

	s.config = cfg

	return nil
}

// InitializeContext implements StrategyRuntime.
func (s *ConfluentOversold) InitializeContext(ctx RuntimeContext) error {
	s.ctx = ctx

	// A new context starts a new run, so bar-to-bar state from a previous
	// data file must not carry over
	s.prevSlowD = 0
	s.hasPrev = false
	s.priorLow = 0
	s.priorObvLow = 0
	s.hasPriorLow = false
	s.inPosition = false
	s.entryPrice = 0
	s.stopPrice = 0
	s.lowSinceEntry = 0
	s.obvSinceEntry = 0

	s.stoch = indicator.NewStochastic().(*indicator.Stochastic)
	if err := s.stoch.Config(s.config.StochFastK, s.config.StochSlowK, s.config.StochSlowD); err != nil {
		return err
	}

	s.cci = indicator.NewCCI()
	if err := s.cci.Config(s.config.CciPeriod, s.config.CciOversold); err != nil {
		return err
	}

	s.volMA = indicator.NewMA()
	if err := s.volMA.Config(s.config.VolumePeriod, indicator.MASourceVolume); err != nil {
		return err
	}

	s.obv = indicator.NewOBV().(*indicator.OBV)
	if err := s.obv.Config(s.config.ObvWindow); err != nil {
		return err
	}

	// Sizing uses the capital at the start of the run rather than live equity
	balance, err := ctx.TradingSystem.GetBalance()
	if err != nil {
		return err
	}

	s.initialCapital = balance

	return nil
}

// GetConfigSchema implements StrategyRuntime.
func (s *ConfluentOversold) GetConfigSchema() (string, error) {
	return ToJSONSchema(ConfluentOversoldConfig{})
}

// ProcessData implements StrategyRuntime.
func (s *ConfluentOversold) ProcessData(data types.MarketData) error {
	ictx := s.ctx.IndicatorContext()

	slowK, slowD, err := s.stoch.KD(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	cciValue, err := s.cci.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	volAvg, err := s.volMA.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	obvValue, err := s.obv.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	if anyNaN(slowK, slowD, cciValue, volAvg, obvValue) {
		return nil
	}

	position, err := s.ctx.TradingSystem.GetPosition(data.Symbol)
	if err != nil {
		return err
	}

	if position.LongQuantity() > 0 {
		err = s.manageOpenPosition(data, position, obvValue)
	} else {
		s.inPosition = false
		err = s.tryEnter(data, slowK, slowD, cciValue, volAvg, obvValue)
	}

	s.prevSlowD = slowD
	s.hasPrev = true

	return err
}

func (s *ConfluentOversold) manageOpenPosition(data types.MarketData, position types.Position, obvValue float64) error {
	if !s.inPosition {
		s.inPosition = true
		s.entryPrice = position.GetAverageLongEntryPrice()
		s.stopPrice = s.entryPrice * (1 - s.config.StopLossPercent)
		s.lowSinceEntry = data.Low
		s.obvSinceEntry = obvValue
	} else {
		if data.Low < s.lowSinceEntry {
			s.lowSinceEntry = data.Low
		}

		if obvValue < s.obvSinceEntry {
			s.obvSinceEntry = obvValue
		}
	}

	// Stop trails to breakeven once the trade moves in favor
	if data.Close > s.entryPrice*(1+s.config.BreakevenTrigger) && s.stopPrice < s.entryPrice {
		s.stopPrice = s.entryPrice
	}

	switch {
	case data.Close >= s.entryPrice*(1+s.config.TakeProfitPercent):
		return s.close(data, types.OrderReasonTakeProfit, fmt.Sprintf("take profit from entry %.2f", s.entryPrice))
	case data.Close <= s.stopPrice:
		return s.close(data, types.OrderReasonStopLoss, fmt.Sprintf("stop at %.2f", s.stopPrice))
	case s.bullishObvDivergence():
		return s.close(data, types.OrderReasonSignalExit, "bullish OBV divergence")
	}

	return nil
}

// bullishObvDivergence is true when price set a lower low since entry while
// OBV held a higher low against the entry bar baselines.
func (s *ConfluentOversold) bullishObvDivergence() bool {
	if !s.hasPriorLow {
		return false
	}

	return s.lowSinceEntry < s.priorLow && s.obvSinceEntry > s.priorObvLow
}

func (s *ConfluentOversold) close(data types.MarketData, reason string, message string) error {
	s.inPosition = false

	if err := s.ctx.TradingSystem.ClosePosition(data.Symbol, reason); err != nil {
		return err
	}

	markSignal(s.ctx, s.Name(), data, types.SignalTypeClosePosition, message)

	return nil
}

func (s *ConfluentOversold) tryEnter(data types.MarketData, slowK, slowD, cciValue, volAvg, obvValue float64) error {
	if !s.hasPrev {
		return nil
	}

	oversold := slowK < s.config.StochOversold
	declining := slowD < s.prevSlowD
	cciOversold := cciValue < s.config.CciOversold
	volumeDry := data.Volume < volAvg

	if !oversold || !declining || !cciOversold || !volumeDry {
		return nil
	}

	quantity := risk.Quantity(s.initialCapital, s.config.RiskFraction, data.Close*s.config.StopLossPercent)
	if quantity <= 0 {
		return nil
	}

	order := marketOrder(s.Name(), data, types.PurchaseTypeBuy, types.PositionTypeLong, quantity, types.OrderReasonStrategy, "oversold confluence entry")

	if err := s.ctx.TradingSystem.PlaceOrder(order); err != nil {
		return err
	}

	// The entry bar becomes the divergence baseline and the starting point
	// for the per-trade extremes
	s.priorLow = data.Low
	s.priorObvLow = obvValue
	s.hasPriorLow = true
	s.lowSinceEntry = data.Low
	s.obvSinceEntry = obvValue

	markSignal(s.ctx, s.Name(), data, types.SignalTypeBuyLong, "oversold confluence entry")

	return nil
}
