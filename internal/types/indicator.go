package types

type IndicatorType string

const (
	IndicatorTypeMA          IndicatorType = "ma"
	IndicatorTypeEMA         IndicatorType = "ema"
	IndicatorTypeRSI         IndicatorType = "rsi"
	IndicatorTypeATR         IndicatorType = "atr"
	IndicatorTypeStdDev      IndicatorType = "std_dev"
	IndicatorTypeStochastic  IndicatorType = "stochastic_oscillator"
	IndicatorTypeCCI         IndicatorType = "cci"
	IndicatorTypeOBV         IndicatorType = "obv"
	IndicatorTypeADX         IndicatorType = "adx"
	IndicatorTypeSpreadProxy IndicatorType = "spread_proxy"
)
