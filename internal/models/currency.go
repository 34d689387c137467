package models

import "strings"

// Currency is an ISO 4217 code from the closed set the ledger supports.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// BaseCurrency is the currency all static rates are expressed against.
const BaseCurrency = CurrencyUSD

var supportedCurrencies = []Currency{CurrencyUSD, CurrencyCAD, CurrencyEUR, CurrencyGBP}

// SupportedCurrencies returns a copy of the closed currency set.
func SupportedCurrencies() []Currency {
	out := make([]Currency, len(supportedCurrencies))
	copy(out, supportedCurrencies)
	return out
}

// IsSupported reports whether c belongs to the closed set.
func (c Currency) IsSupported() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency accepts an exact, upper-case code.
func ParseCurrency(raw string) (Currency, bool) {
	c := Currency(raw)
	return c, c.IsSupported()
}

// SupportedCurrencyList renders the set for error messages, e.g. "USD, CAD, EUR, GBP".
func SupportedCurrencyList() string {
	codes := make([]string, len(supportedCurrencies))
	for i, c := range supportedCurrencies {
		codes[i] = string(c)
	}
	return strings.Join(codes, ", ")
}
