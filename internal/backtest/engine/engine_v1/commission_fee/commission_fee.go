package commission_fee

type CommissionFee interface {
	// Calculate the commission fee for a given quantity at a given price and returns the fee in USD
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	BrokerZero       Broker = "zero_commission"
	BrokerPercentage Broker = "percentage"
)

var AllBrokers = []any{
	BrokerZero,
	BrokerPercentage,
}

func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerPercentage:
		return NewPercentageCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
