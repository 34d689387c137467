// Package exchange holds the static exchange-rate table.
package exchange

import (
	"fmt"
	"strings"

	apperrors "stase/internal/errors"
	"stase/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultRates are units of each currency per one unit of the base.
func DefaultRates() map[models.Currency]decimal.Decimal {
	return map[models.Currency]decimal.Decimal{
		models.CurrencyUSD: decimal.NewFromInt(1),
		models.CurrencyCAD: decimal.RequireFromString("1.36"),
		models.CurrencyEUR: decimal.RequireFromString("0.85"),
		models.CurrencyGBP: decimal.RequireFromString("0.73"),
	}
}

// Table is immutable once built.
type Table struct {
	rates map[models.Currency]decimal.Decimal
}

// NewTable validates rates: every supported currency present and
// positive, the base currency at exactly 1.
func NewTable(rates map[models.Currency]decimal.Decimal) (*Table, error) {
	t := &Table{rates: make(map[models.Currency]decimal.Decimal, len(rates))}
	for _, c := range models.SupportedCurrencies() {
		r, ok := rates[c]
		if !ok {
			return nil, fmt.Errorf("missing rate for %s", c)
		}
		if !r.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive, got %s", c, r)
		}
		t.rates[c] = r
	}
	if !t.rates[models.BaseCurrency].Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("base currency %s must have rate 1", models.BaseCurrency)
	}
	return t, nil
}

// NewDefaultTable is NewTable(DefaultRates()).
func NewDefaultTable() *Table {
	t, err := NewTable(DefaultRates())
	if err != nil {
		panic(err)
	}
	return t
}

// ParseRates applies overrides like "CAD=1.35,EUR=0.9" on top of the
// defaults. An empty string yields the defaults.
func ParseRates(raw string) (map[models.Currency]decimal.Decimal, error) {
	rates := DefaultRates()
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rate override %q", pair)
		}
		c, supported := models.ParseCurrency(strings.ToUpper(strings.TrimSpace(code)))
		if !supported {
			return nil, fmt.Errorf("unsupported currency in rate override %q", pair)
		}
		r, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid rate in override %q: %w", pair, err)
		}
		rates[c] = r
	}
	return rates, nil
}

// Currencies lists the currencies the table prices.
func (t *Table) Currencies() []models.Currency {
	return models.SupportedCurrencies()
}

// IsSupportedPair reports whether both currencies are in the table.
func (t *Table) IsSupportedPair(from, to models.Currency) bool {
	_, okFrom := t.rates[from]
	_, okTo := t.rates[to]
	return okFrom && okTo
}

// Convert returns amount in to-currency units, rounded to two places.
func (t *Table) Convert(amount decimal.Decimal, from, to models.Currency) (decimal.Decimal, error) {
	if !t.IsSupportedPair(from, to) {
		return decimal.Zero, apperrors.ErrUnsupportedPair
	}
	if from == to {
		return amount, nil
	}
	base := amount.Div(t.rates[from])
	return models.RoundMoney(base.Mul(t.rates[to])), nil
}

// Rate returns the to-units per from-unit, rounded to five places.
func (t *Table) Rate(from, to models.Currency) (decimal.Decimal, error) {
	if !t.IsSupportedPair(from, to) {
		return decimal.Zero, apperrors.ErrUnsupportedPair
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	inverse := decimal.NewFromInt(1).Div(t.rates[from])
	return inverse.Mul(t.rates[to]).Round(models.RatePlaces), nil
}

// PairLabel renders the canonical "FROM-TO" label.
func PairLabel(from, to models.Currency) string {
	return string(from) + "-" + string(to)
}

// ValidatePairLabel checks label is exactly "FROM-TO".
func (t *Table) ValidatePairLabel(label string, from, to models.Currency) error {
	if label != PairLabel(from, to) {
		return apperrors.ErrPairLabelMismatch.WithDetails(map[string]interface{}{
			"expected": PairLabel(from, to),
			"provided": label,
		})
	}
	return nil
}
