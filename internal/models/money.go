package models

import "github.com/shopspring/decimal"

const (
	// MoneyPlaces is the number of decimal places every balance and amount carries.
	MoneyPlaces = 2
	// RatePlaces is the precision of exchange rates.
	RatePlaces = 5
)

// RoundMoney rounds half away from zero to two places. It is the only
// rounding rule applied to monetary values.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// HasMoneyPrecision reports whether d needs no more than two decimal places.
func HasMoneyPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}
