package pricing

import "github.com/shopspring/decimal"

// MoneyPlaces is the precision every stored amount is rounded to.
const MoneyPlaces = 2

// Fee returns amount × rate rounded half away from zero to two places.
func Fee(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(MoneyPlaces)
}

// Total is what the sponsor pays when the provider passes its fee on.
func Total(amount, fee decimal.Decimal) decimal.Decimal {
	return amount.Add(fee).Round(MoneyPlaces)
}
