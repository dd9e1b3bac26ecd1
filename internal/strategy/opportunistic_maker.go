package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/uljio/stratbench/internal/indicator"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/internal/utils"
	"github.com/uljio/stratbench/pkg/errors"
	"gopkg.in/yaml.v3"
)

const OpportunisticMakerName = "opportunistic_maker"

// OpportunisticMakerConfig holds the parameters for the OpportunisticMaker strategy.
type OpportunisticMakerConfig struct {
	// VolumePeriod is the SMA length for the volume spike filter
	VolumePeriod int `yaml:"volume_period" json:"volume_period" jsonschema:"title=Volume SMA period,default=20" validate:"gt=0"`
	// VolumeMult is the multiple of average volume that counts as a spike
	VolumeMult float64 `yaml:"volume_mult" json:"volume_mult" jsonschema:"title=Volume multiplier,default=1.5" validate:"gt=0"`
	// AtrPeriod is the ATR length
	AtrPeriod int `yaml:"atr_period" json:"atr_period" jsonschema:"title=ATR period,default=14" validate:"gt=0"`
	// MaxAtrRatio is the ATR/price ceiling under which the market counts as calm
	MaxAtrRatio float64 `yaml:"max_atr_ratio" json:"max_atr_ratio" jsonschema:"title=Max ATR to price ratio,default=0.005" validate:"gt=0"`
	// SpreadPeriod is the rolling mean length of the spread proxy
	SpreadPeriod int `yaml:"spread_period" json:"spread_period" jsonschema:"title=Spread proxy period,default=20" validate:"gt=0"`
	// SpreadMult is the multiple of the average spread proxy required for entry
	SpreadMult float64 `yaml:"spread_mult" json:"spread_mult" jsonschema:"title=Spread multiplier,default=1.1" validate:"gt=0"`
	// AdxPeriod is the ADX length
	AdxPeriod int `yaml:"adx_period" json:"adx_period" jsonschema:"title=ADX period,default=14" validate:"gt=0"`
	// MaxAdx is the ADX ceiling under which the market counts as rangebound
	MaxAdx float64 `yaml:"max_adx" json:"max_adx" jsonschema:"title=Max ADX,default=25" validate:"gt=0"`
	// OffsetAtr places the limit orders this many ATRs away from close
	OffsetAtr float64 `yaml:"offset_atr" json:"offset_atr" jsonschema:"title=Limit offset in ATRs,default=0.5" validate:"gt=0"`
	// StopAtr sets the stop loss this many ATRs from the limit price
	StopAtr float64 `yaml:"stop_atr" json:"stop_atr" jsonschema:"title=Stop loss in ATRs,default=1" validate:"gt=0"`
	// TargetAtr sets the take profit this many ATRs from the limit price
	TargetAtr float64 `yaml:"target_atr" json:"target_atr" jsonschema:"title=Take profit in ATRs,default=2" validate:"gt=0"`
	// RiskFraction is the fraction of equity risked per side
	RiskFraction float64 `yaml:"risk_fraction" json:"risk_fraction" jsonschema:"title=Risk fraction,default=0.005" validate:"gt=0,lt=1"`
	// MaxConcurrent caps the number of open orders and positions
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent" jsonschema:"title=Max concurrent trades,default=5" validate:"gt=0"`
	// QuantityPrecision rounds order quantity to this many decimals
	QuantityPrecision int `yaml:"quantity_precision" json:"quantity_precision" jsonschema:"title=Quantity decimal precision,default=4" validate:"gte=0"`
}

func DefaultOpportunisticMakerConfig() OpportunisticMakerConfig {
	return OpportunisticMakerConfig{
		VolumePeriod:      20,
		VolumeMult:        1.5,
		AtrPeriod:         14,
		MaxAtrRatio:       0.005,
		SpreadPeriod:      20,
		SpreadMult:        1.1,
		AdxPeriod:         14,
		MaxAdx:            25,
		OffsetAtr:         0.5,
		StopAtr:           1,
		TargetAtr:         2,
		RiskFraction:      0.005,
		MaxConcurrent:     5,
		QuantityPrecision: 4,
	}
}

// OpportunisticMaker quotes both sides of a calm but busy market: when volume
// spikes while volatility stays low, bar ranges run wide and no trend is in
// force, it rests a bid and an ask half an ATR away from close, each carrying
// its own stop and target.
type OpportunisticMaker struct {
	config OpportunisticMakerConfig
	ctx    RuntimeContext

	volMA  indicator.Indicator
	atr    indicator.Indicator
	spread indicator.Indicator
	adx    indicator.Indicator
}

// NewOpportunisticMaker creates the strategy with default configuration.
func NewOpportunisticMaker() StrategyRuntime {
	return &OpportunisticMaker{
		config: DefaultOpportunisticMakerConfig(),
	}
}

// Name implements StrategyRuntime.
func (s *OpportunisticMaker) Name() string {
	return OpportunisticMakerName
}

// Initialize implements StrategyRuntime.
func (s *OpportunisticMaker) Initialize(config string) error {
	cfg := DefaultOpportunisticMakerConfig()

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse opportunistic maker config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid opportunistic maker config", err)
	}

	s.config = cfg

	return nil
}

// InitializeContext implements StrategyRuntime.
func (s *OpportunisticMaker) InitializeContext(ctx RuntimeContext) error {
	s.ctx = ctx

	s.volMA = indicator.NewMA()
	if err := s.volMA.Config(s.config.VolumePeriod, indicator.MASourceVolume); err != nil {
		return err
	}

	s.atr = indicator.NewATR()
	if err := s.atr.Config(s.config.AtrPeriod); err != nil {
		return err
	}

	s.spread = indicator.NewSpreadProxy()
	if err := s.spread.Config(s.config.SpreadPeriod); err != nil {
		return err
	}

	s.adx = indicator.NewADX()
	if err := s.adx.Config(s.config.AdxPeriod); err != nil {
		return err
	}

	return nil
}

// GetConfigSchema implements StrategyRuntime.
func (s *OpportunisticMaker) GetConfigSchema() (string, error) {
	return ToJSONSchema(OpportunisticMakerConfig{})
}

// ProcessData implements StrategyRuntime.
func (s *OpportunisticMaker) ProcessData(data types.MarketData) error {
	ictx := s.ctx.IndicatorContext()

	volAvg, err := s.volMA.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	atrValue, err := s.atr.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	spreadAvg, err := s.spread.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	adxValue, err := s.adx.RawValue(data.Symbol, data.Time, ictx)
	if err != nil {
		return nil
	}

	// Any NaN input invalidates the whole setup
	if anyNaN(volAvg, atrValue, spreadAvg, adxValue) || data.Close <= 0 || atrValue <= 0 {
		return nil
	}

	pending, err := s.ctx.TradingSystem.PendingOrderCount()
	if err != nil {
		return err
	}

	if pending >= s.config.MaxConcurrent {
		return nil
	}

	volumeSpike := data.Volume > s.config.VolumeMult*volAvg
	calmMarket := atrValue/data.Close < s.config.MaxAtrRatio
	wideRange := (data.High-data.Low)/data.Close > s.config.SpreadMult*spreadAvg
	noTrend := adxValue < s.config.MaxAdx

	if !volumeSpike || !calmMarket || !wideRange || !noTrend {
		return nil
	}

	equity, err := s.ctx.TradingSystem.GetEquity()
	if err != nil {
		return err
	}

	stopDistance := s.config.StopAtr * atrValue

	// Size per side is risk over stop distance, normalized by price
	quantity := utils.RoundToDecimalPrecision(equity*s.config.RiskFraction/stopDistance/data.Close, s.config.QuantityPrecision)
	if quantity <= 0 {
		return nil
	}

	bid := data.Close - s.config.OffsetAtr*atrValue
	ask := data.Close + s.config.OffsetAtr*atrValue

	if bid <= 0 {
		return nil
	}

	orders := []types.ExecuteOrder{
		{
			ID:           uuid.NewString(),
			Symbol:       data.Symbol,
			Side:         types.PurchaseTypeBuy,
			OrderType:    types.OrderTypeLimit,
			Price:        bid,
			Quantity:     quantity,
			PositionType: types.PositionTypeLong,
			StrategyName: s.Name(),
			Reason: types.Reason{
				Reason:  types.OrderReasonStrategy,
				Message: "resting bid in wide-range calm market",
			},
			StopLoss: optional.Some(types.ExecuteOrderBracket{
				Side:      types.PurchaseTypeSell,
				OrderType: types.OrderTypeMarket,
				Price:     bid - stopDistance,
			}),
			TakeProfit: optional.Some(types.ExecuteOrderBracket{
				Side:      types.PurchaseTypeSell,
				OrderType: types.OrderTypeLimit,
				Price:     bid + s.config.TargetAtr*atrValue,
			}),
		},
		{
			ID:           uuid.NewString(),
			Symbol:       data.Symbol,
			Side:         types.PurchaseTypeSell,
			OrderType:    types.OrderTypeLimit,
			Price:        ask,
			Quantity:     quantity,
			PositionType: types.PositionTypeShort,
			StrategyName: s.Name(),
			Reason: types.Reason{
				Reason:  types.OrderReasonStrategy,
				Message: "resting ask in wide-range calm market",
			},
			StopLoss: optional.Some(types.ExecuteOrderBracket{
				Side:      types.PurchaseTypeBuy,
				OrderType: types.OrderTypeMarket,
				Price:     ask + stopDistance,
			}),
			TakeProfit: optional.Some(types.ExecuteOrderBracket{
				Side:      types.PurchaseTypeBuy,
				OrderType: types.OrderTypeLimit,
				Price:     ask - s.config.TargetAtr*atrValue,
			}),
		},
	}

	if err := s.ctx.TradingSystem.PlaceMultipleOrders(orders); err != nil {
		return err
	}

	markSignal(s.ctx, s.Name(), data, types.SignalTypeWait, "bid and ask resting")

	return nil
}
