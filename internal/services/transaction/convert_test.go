package transaction

import (
	"context"
	"testing"

	apperrors "stase/internal/errors"
	"stase/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_UsesStaticRate(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD, models.CurrencyCAD)
	f.fund(alice, models.CurrencyUSD, "250")

	res, err := f.svc.Convert(context.Background(), alice, ConvertRequest{
		FromAmount: amt("100"), FromCurrency: "USD",
		ToAmount: amt("136"), ToCurrency: "CAD",
		PairLabel: "USD-CAD",
	})
	require.NoError(t, err)

	assert.True(t, f.balance(alice, models.CurrencyUSD).Equal(dec("150")))
	assert.True(t, f.balance(alice, models.CurrencyCAD).Equal(dec("136")))
	assert.True(t, res.Details.ExchangeRate.Equal(dec("1.36")))
	assert.True(t, res.Source.PreviousBalance.Equal(dec("250")))
	assert.True(t, res.Target.PreviousBalance.IsZero())

	assert.Equal(t, models.KindConvert, res.Debit.Kind)
	assert.Equal(t, models.KindConvert, res.Credit.Kind)
	assert.Equal(t, DirectionDebit, res.Debit.Metadata["direction"])
	assert.Equal(t, DirectionCredit, res.Credit.Metadata["direction"])
	assert.Equal(t, "USD-CAD", res.Debit.Metadata["conversionPair"])
	assert.Equal(t, "136.00", res.Debit.Metadata["convertedAmount"])
	assert.Equal(t, "100.00", res.Credit.Metadata["originalAmount"])
	assert.NotEqual(t, res.Debit.Reference, res.Credit.Reference)
	assert.Len(t, f.entries(alice), 2)
}

func TestConvert_CreditsRecomputedAmount(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD, models.CurrencyGBP)
	f.fund(alice, models.CurrencyUSD, "100")

	// 33.33 USD is 24.3309 GBP; the caller rounded down to 24.33 but
	// sent 24.335, inside both tolerances.
	res, err := f.svc.Convert(context.Background(), alice, ConvertRequest{
		FromAmount: amt("33.33"), FromCurrency: "USD",
		ToAmount: amt("24.335"), ToCurrency: "GBP",
		PairLabel: "USD-GBP",
	})
	require.NoError(t, err)
	assert.True(t, res.Details.ToAmount.Equal(dec("24.33")))
	assert.True(t, f.balance(alice, models.CurrencyGBP).Equal(dec("24.33")))
}

func TestConvert_Rejections(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD, models.CurrencyCAD, models.CurrencyEUR)
	f.fund(alice, models.CurrencyUSD, "100")

	tests := []struct {
		name string
		req  ConvertRequest
		want *apperrors.DomainError
	}{
		{"missing pair", ConvertRequest{FromAmount: amt("100"), FromCurrency: "USD", ToAmount: amt("136"), ToCurrency: "CAD"}, apperrors.ErrMissingFields},
		{"missing amount", ConvertRequest{FromCurrency: "USD", ToAmount: amt("136"), ToCurrency: "CAD", PairLabel: "USD-CAD"}, apperrors.ErrMissingFields},
		{"zero amount", ConvertRequest{FromAmount: amt("0"), FromCurrency: "USD", ToAmount: amt("136"), ToCurrency: "CAD", PairLabel: "USD-CAD"}, apperrors.ErrInvalidAmount},
		{"sub-cent source", ConvertRequest{FromAmount: amt("10.005"), FromCurrency: "USD", ToAmount: amt("13.61"), ToCurrency: "CAD", PairLabel: "USD-CAD"}, apperrors.ErrInvalidPrecision},
		{"label mismatch", ConvertRequest{FromAmount: amt("100"), FromCurrency: "USD", ToAmount: amt("136"), ToCurrency: "CAD", PairLabel: "CAD-USD"}, apperrors.ErrPairLabelMismatch},
		{"unsupported", ConvertRequest{FromAmount: amt("100"), FromCurrency: "USD", ToAmount: amt("15000"), ToCurrency: "JPY", PairLabel: "USD-JPY"}, apperrors.ErrUnsupportedPair},
		{"same currency", ConvertRequest{FromAmount: amt("100"), FromCurrency: "USD", ToAmount: amt("100"), ToCurrency: "USD", PairLabel: "USD-USD"}, apperrors.ErrSameCurrency},
		{"rate mismatch", ConvertRequest{FromAmount: amt("100"), FromCurrency: "USD", ToAmount: amt("200"), ToCurrency: "CAD", PairLabel: "USD-CAD"}, apperrors.ErrRateMismatch},
		{"missing target", ConvertRequest{FromAmount: amt("10"), FromCurrency: "USD", ToAmount: amt("7.30"), ToCurrency: "GBP", PairLabel: "USD-GBP"}, apperrors.ErrTargetAccountNotFound},
		{"insufficient", ConvertRequest{FromAmount: amt("200"), FromCurrency: "USD", ToAmount: amt("272"), ToCurrency: "CAD", PairLabel: "USD-CAD"}, apperrors.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Convert(context.Background(), alice, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.True(t, f.balance(alice, models.CurrencyUSD).Equal(dec("100")))
	assert.Empty(t, f.entries(alice))
}

func TestConvert_MissingSourceAccount(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyCAD)

	_, err := f.svc.Convert(context.Background(), alice, ConvertRequest{
		FromAmount: amt("10"), FromCurrency: "EUR",
		ToAmount: amt("16"), ToCurrency: "CAD",
		PairLabel: "EUR-CAD",
	})
	assert.ErrorIs(t, err, apperrors.ErrSourceAccountNotFound)
}

func TestConvert_RateMismatchReportsBothRates(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD, models.CurrencyCAD)
	f.fund(alice, models.CurrencyUSD, "100")

	_, err := f.svc.Convert(context.Background(), alice, ConvertRequest{
		FromAmount: amt("100"), FromCurrency: "USD",
		ToAmount: amt("200"), ToCurrency: "CAD",
		PairLabel: "USD-CAD",
	})
	de := apperrors.As(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.KindMismatch, de.Kind)
	assert.Equal(t, "1.36000", de.Details["expectedRate"])
	assert.Equal(t, "2.00000", de.Details["providedRate"])
}

func TestConvert_AmountMismatchWithinRateTolerance(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD, models.CurrencyCAD)
	f.fund(alice, models.CurrencyUSD, "20000")

	// Implied rate 1.3605 passes the rate check; 13605 is 5 CAD off.
	_, err := f.svc.Convert(context.Background(), alice, ConvertRequest{
		FromAmount: amt("10000"), FromCurrency: "USD",
		ToAmount: amt("13605"), ToCurrency: "CAD",
		PairLabel: "USD-CAD",
	})
	require.ErrorIs(t, err, apperrors.ErrAmountMismatch)
	assert.Equal(t, "13600.00", apperrors.As(err).Details["expectedAmount"])
	assert.True(t, f.balance(alice, models.CurrencyUSD).Equal(dec("20000")))
}

func TestConvert_RoundTripWithinTolerance(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD, models.CurrencyEUR)
	f.fund(alice, models.CurrencyUSD, "100")

	out, err := f.svc.Convert(context.Background(), alice, ConvertRequest{
		FromAmount: amt("100"), FromCurrency: "USD",
		ToAmount: amt("85"), ToCurrency: "EUR",
		PairLabel: "USD-EUR",
	})
	require.NoError(t, err)

	back := out.Details.ToAmount
	expected := back.Div(dec("0.85")).Round(2)
	_, err = f.svc.Convert(context.Background(), alice, ConvertRequest{
		FromAmount: &back, FromCurrency: "EUR",
		ToAmount: &expected, ToCurrency: "USD",
		PairLabel: "EUR-USD",
	})
	require.NoError(t, err)

	final := f.balance(alice, models.CurrencyUSD)
	assert.True(t, final.Sub(dec("100")).Abs().LessThanOrEqual(dec("0.02")), "final %s", final)
	assert.True(t, f.balance(alice, models.CurrencyEUR).IsZero())
}
