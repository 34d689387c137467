package transaction

import (
	"errors"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/repositories"

	"github.com/shopspring/decimal"
)

func invalidCurrency() *apperrors.DomainError {
	return apperrors.ErrInvalidCurrency.WithMessage(
		"invalid currency, supported currencies: " + models.SupportedCurrencyList())
}

func insufficientFunds(requested, available decimal.Decimal, currency models.Currency) error {
	return apperrors.ErrInsufficientFunds.
		WithMessage("insufficient funds in " + currency.String() + " account").
		WithDetails(map[string]interface{}{
			"requested": requested.StringFixed(models.MoneyPlaces),
			"available": available.StringFixed(models.MoneyPlaces),
			"currency":  currency,
		})
}

func accountNotFound(base *apperrors.DomainError, currency models.Currency) error {
	return base.WithDetails(map[string]interface{}{"currency": currency})
}

// translate maps store sentinels left over after a unit resolved onto
// client-facing errors. DomainErrors pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de
	}
	switch {
	case errors.Is(err, repositories.ErrAccountNotFound):
		return apperrors.ErrAccountNotFound.Wrap(err)
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.ErrUserNotFound.Wrap(err)
	case errors.Is(err, repositories.ErrNegativeBalance):
		return apperrors.ErrInsufficientFunds.Wrap(err)
	case errors.Is(err, repositories.ErrDuplicateKey),
		errors.Is(err, repositories.ErrDuplicateReference),
		errors.Is(err, repositories.ErrTransient):
		return apperrors.ErrConflict.Wrap(err)
	}
	return apperrors.Internal(err)
}
