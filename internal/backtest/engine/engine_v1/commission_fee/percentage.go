package commission_fee

// DefaultPercentageRate is the commission rate applied when no rate is configured.
const DefaultPercentageRate = 0.002

// PercentageCommissionFee charges a fixed fraction of the traded notional.
type PercentageCommissionFee struct {
	Rate float64
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	if rate <= 0 {
		rate = DefaultPercentageRate
	}

	return &PercentageCommissionFee{Rate: rate}
}

func (c *PercentageCommissionFee) Calculate(quantity float64, price float64) float64 {
	if quantity <= 0 || price <= 0 {
		return 0
	}

	return c.Rate * quantity * price
}
