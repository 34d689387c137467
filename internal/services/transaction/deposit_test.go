package transaction

import (
	"context"
	"strings"
	"sync"
	"testing"

	apperrors "stase/internal/errors"
	"stase/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeposit_CreditsAccountAndRecordsEntry(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD)

	res, err := f.svc.Deposit(context.Background(), alice, FundsRequest{
		Amount: amt("500"), Currency: "USD", Pin: testPin,
	})
	require.NoError(t, err)

	assert.True(t, res.NewBalance.Equal(dec("500.00")))
	assert.True(t, res.PreviousBalance.IsZero())
	assert.True(t, strings.HasPrefix(res.Reference, "DEP"))
	assert.True(t, f.balance(alice, models.CurrencyUSD).Equal(dec("500")))

	entries := f.entries(alice)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.KindDeposit, e.Kind)
	assert.True(t, e.Amount.Equal(dec("500")))
	assert.True(t, e.From.IsExternal())
	assert.True(t, e.To.Is(alice.ID))
	assert.Equal(t, models.StatusCompleted, e.Status)
	assert.Equal(t, res.Reference, e.Reference)
	assert.Equal(t, "0.00", e.Metadata["previousBalance"])
	assert.Equal(t, "500.00", e.Metadata["newBalance"])
	assert.Equal(t, 1, f.events.count())
}

func TestDeposit_MaximumBoundary(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD)

	_, err := f.svc.Deposit(context.Background(), alice, FundsRequest{Amount: amt("100000"), Currency: "USD", Pin: testPin})
	require.NoError(t, err)

	_, err = f.svc.Deposit(context.Background(), alice, FundsRequest{Amount: amt("100000.01"), Currency: "USD", Pin: testPin})
	assert.ErrorIs(t, err, apperrors.ErrMaxLimitExceeded)
	assert.True(t, f.balance(alice, models.CurrencyUSD).Equal(dec("100000")))
}

func TestDeposit_IsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyEUR)
	req := FundsRequest{Amount: amt("25.50"), Currency: "EUR", Pin: testPin}

	first, err := f.svc.Deposit(context.Background(), alice, req)
	require.NoError(t, err)
	second, err := f.svc.Deposit(context.Background(), alice, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Reference, second.Reference)
	assert.Len(t, f.entries(alice), 2)
	assert.True(t, f.balance(alice, models.CurrencyEUR).Equal(dec("51")))
}

func TestDeposit_Rejections(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD)

	noPin := &models.User{ExternalID: "ext-nopin", Username: "nopin", Email: "nopin@example.com"}
	require.NoError(t, f.store.Users().Create(context.Background(), noPin))

	tests := []struct {
		name string
		user *models.User
		req  FundsRequest
		want *apperrors.DomainError
	}{
		{"missing amount", alice, FundsRequest{Currency: "USD", Pin: testPin}, apperrors.ErrMissingFields},
		{"missing pin", alice, FundsRequest{Amount: amt("1"), Currency: "USD"}, apperrors.ErrMissingFields},
		{"zero amount", alice, FundsRequest{Amount: amt("0"), Currency: "USD", Pin: testPin}, apperrors.ErrInvalidAmount},
		{"negative amount", alice, FundsRequest{Amount: amt("-5"), Currency: "USD", Pin: testPin}, apperrors.ErrInvalidAmount},
		{"below a cent", alice, FundsRequest{Amount: amt("0.004"), Currency: "USD", Pin: testPin}, apperrors.ErrInvalidPrecision},
		{"three decimals", alice, FundsRequest{Amount: amt("10.005"), Currency: "USD", Pin: testPin}, apperrors.ErrInvalidPrecision},
		{"unsupported currency", alice, FundsRequest{Amount: amt("1"), Currency: "JPY", Pin: testPin}, apperrors.ErrInvalidCurrency},
		{"pin not configured", noPin, FundsRequest{Amount: amt("1"), Currency: "USD", Pin: testPin}, apperrors.ErrPinNotConfigured},
		{"wrong pin", alice, FundsRequest{Amount: amt("1"), Currency: "USD", Pin: "9999"}, apperrors.ErrInvalidPin},
		{"no account", alice, FundsRequest{Amount: amt("1"), Currency: "GBP", Pin: testPin}, apperrors.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Deposit(context.Background(), tt.user, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want.Kind, apperrors.KindOf(err))
		})
	}
	assert.Empty(t, f.entries(alice))
	assert.True(t, f.balance(alice, models.CurrencyUSD).IsZero())
}

func TestWithdraw_DebitsAccount(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyGBP)
	f.fund(alice, models.CurrencyGBP, "80")

	res, err := f.svc.Withdraw(context.Background(), alice, FundsRequest{Amount: amt("30.25"), Currency: "GBP", Pin: testPin})
	require.NoError(t, err)

	assert.True(t, res.NewBalance.Equal(dec("49.75")))
	assert.True(t, res.PreviousBalance.Equal(dec("80")))
	assert.True(t, strings.HasPrefix(res.Reference, "WTH"))

	entries := f.entries(alice)
	require.Len(t, entries, 1)
	assert.Equal(t, models.KindWithdraw, entries[0].Kind)
	assert.True(t, entries[0].From.Is(alice.ID))
	assert.True(t, entries[0].To.IsExternal())
}

func TestWithdraw_InsufficientFundsLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD)
	_, err := f.svc.Deposit(context.Background(), alice, FundsRequest{Amount: amt("500"), Currency: "USD", Pin: testPin})
	require.NoError(t, err)

	_, err = f.svc.Withdraw(context.Background(), alice, FundsRequest{Amount: amt("600"), Currency: "USD", Pin: testPin})
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	de := apperrors.As(err)
	assert.Equal(t, "600.00", de.Details["requested"])
	assert.Equal(t, "500.00", de.Details["available"])
	assert.Equal(t, models.CurrencyUSD, de.Details["currency"])

	assert.True(t, f.balance(alice, models.CurrencyUSD).Equal(dec("500")))
	assert.Len(t, f.entries(alice), 1)
}

func TestWithdraw_HasNoMaximum(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyCAD)
	f.fund(alice, models.CurrencyCAD, "250000")

	_, err := f.svc.Withdraw(context.Background(), alice, FundsRequest{Amount: amt("200000"), Currency: "CAD", Pin: testPin})
	require.NoError(t, err)
	assert.True(t, f.balance(alice, models.CurrencyCAD).Equal(dec("50000")))
}

func TestWithdraw_RejectsSubCentAmounts(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD)
	f.fund(alice, models.CurrencyUSD, "1")

	for _, a := range []string{"0.005", "0.999"} {
		_, err := f.svc.Withdraw(context.Background(), alice, FundsRequest{Amount: amt(a), Currency: "USD", Pin: testPin})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPrecision, a)
	}
	assert.True(t, f.balance(alice, models.CurrencyUSD).Equal(dec("1")))
	assert.Empty(t, f.entries(alice))
}

func TestDepositAndWithdraw_Concurrent(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", models.CurrencyUSD)
	f.fund(alice, models.CurrencyUSD, "100")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.Withdraw(context.Background(), alice, FundsRequest{Amount: amt("10"), Currency: "USD", Pin: testPin})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.Deposit(context.Background(), alice, FundsRequest{Amount: amt("1"), Currency: "USD", Pin: testPin})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final := f.balance(alice, models.CurrencyUSD)
	assert.False(t, final.IsNegative())
	want := dec("120").Sub(decimal.NewFromInt(int64(10 * succeeded)))
	assert.True(t, final.Equal(want), "balance %s, want %s", final, want)
	assert.Len(t, f.entries(alice), 20+succeeded)
}
