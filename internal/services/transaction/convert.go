package transaction

import (
	"context"
	"fmt"
	"time"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/repositories"
	"stase/internal/services/reference"
	"stase/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func (s *service) Convert(ctx context.Context, user *models.User, req ConvertRequest) (*ConvertResult, error) {
	start := time.Now()
	res, err := s.convert(ctx, user, req)
	s.observe(OpConvert, start, err)
	return res, err
}

type conversion struct {
	fromAmount, toAmount decimal.Decimal
	from, to             models.Currency
	rate                 decimal.Decimal
}

// validateConvert runs the request-only checks: presence, positivity,
// source precision, the pair label, currency support and the implied rate.
func (s *service) validateConvert(req ConvertRequest) (*conversion, error) {
	v := validation.New()
	if req.FromAmount == nil {
		v.AddError("convertFromAmount", "is required")
	}
	if req.ToAmount == nil {
		v.AddError("convertToAmount", "is required")
	}
	v.Required("convertFromAccountCurrency", req.FromCurrency)
	v.Required("convertToAccountCurrency", req.ToCurrency)
	v.Required("currencyPairs", req.PairLabel)
	if err := v.Err(apperrors.ErrMissingFields); err != nil {
		return nil, err
	}
	v.Amount("convertFromAmount", req.FromAmount)
	v.Amount("convertToAmount", req.ToAmount)
	if err := v.Err(apperrors.ErrInvalidAmount); err != nil {
		return nil, err
	}
	v.Precision("convertFromAmount", req.FromAmount)
	if err := v.Err(apperrors.ErrInvalidPrecision); err != nil {
		return nil, err
	}

	from, to := models.Currency(req.FromCurrency), models.Currency(req.ToCurrency)
	if err := s.rates.ValidatePairLabel(req.PairLabel, from, to); err != nil {
		return nil, err
	}
	if !s.rates.IsSupportedPair(from, to) {
		return nil, apperrors.ErrUnsupportedPair.WithDetails(map[string]interface{}{
			"supportedCurrencies": models.SupportedCurrencies(),
		})
	}
	if from == to {
		return nil, apperrors.ErrSameCurrency
	}

	expected, err := s.rates.Rate(from, to)
	if err != nil {
		return nil, err
	}
	actual := req.ToAmount.Div(*req.FromAmount)
	if expected.Sub(actual).Abs().GreaterThan(RateTolerance) {
		return nil, apperrors.ErrRateMismatch.WithDetails(map[string]interface{}{
			"expectedRate": expected.StringFixed(models.RatePlaces),
			"providedRate": actual.StringFixed(models.RatePlaces),
		})
	}

	return &conversion{
		fromAmount: *req.FromAmount,
		toAmount:   *req.ToAmount,
		from:       from,
		to:         to,
		rate:       expected,
	}, nil
}

func (s *service) convert(ctx context.Context, user *models.User, req ConvertRequest) (*ConvertResult, error) {
	c, err := s.validateConvert(req)
	if err != nil {
		return nil, err
	}

	source, err := s.store.Accounts().Get(ctx, user.ID, c.from)
	if err != nil {
		return nil, lookupErr(err, accountNotFound(apperrors.ErrSourceAccountNotFound, c.from))
	}
	if _, err := s.store.Accounts().Get(ctx, user.ID, c.to); err != nil {
		return nil, lookupErr(err, accountNotFound(apperrors.ErrTargetAccountNotFound, c.to))
	}
	if source.Balance.LessThan(c.fromAmount) {
		return nil, insufficientFunds(c.fromAmount, source.Balance, c.from)
	}

	credit, err := s.rates.Convert(c.fromAmount, c.from, c.to)
	if err != nil {
		return nil, err
	}
	if credit.Sub(c.toAmount).Abs().GreaterThan(AmountTolerance) {
		return nil, apperrors.ErrAmountMismatch.WithDetails(map[string]interface{}{
			"expectedAmount": credit.StringFixed(models.MoneyPlaces),
			"providedAmount": c.toAmount.String(),
		})
	}

	label := req.PairLabel
	rate := c.rate.StringFixed(models.RatePlaces)
	fromText := c.fromAmount.StringFixed(models.MoneyPlaces)
	creditText := credit.StringFixed(models.MoneyPlaces)

	var res *ConvertResult
	err = s.runUnit(ctx, OpConvert, func(tx repositories.Store) error {
		// Lock the two accounts in currency order.
		first, second := c.from, c.to
		if first > second {
			first, second = second, first
		}
		locked := make(map[models.Currency]*models.Account, 2)
		for _, cur := range []models.Currency{first, second} {
			account, err := tx.Accounts().GetForUpdate(ctx, user.ID, cur)
			if err != nil {
				return fmt.Errorf("lock account %s/%s: %w", user.ID, cur, err)
			}
			locked[cur] = account
		}
		if locked[c.from].Balance.LessThan(c.fromAmount) {
			return insufficientFunds(c.fromAmount, locked[c.from].Balance, c.from)
		}

		debited, err := tx.Accounts().AdjustBalance(ctx, user.ID, c.from, c.fromAmount.Neg())
		if err != nil {
			return err
		}
		credited, err := tx.Accounts().AdjustBalance(ctx, user.ID, c.to, credit)
		if err != nil {
			return err
		}

		debitRef, err := s.nextReference(reference.PrefixConvert)
		if err != nil {
			return err
		}
		creditRef, err := s.nextReference(reference.PrefixConvert)
		if err != nil {
			return err
		}

		date := s.now()
		debit := &models.LedgerEntry{
			Date:      date,
			Status:    models.StatusCompleted,
			Reference: debitRef,
			From:      models.Internal(user.ID),
			To:        models.Internal(user.ID),
			Kind:      models.KindConvert,
			Currency:  c.from,
			Amount:    c.fromAmount,
			Metadata: models.JSON{
				"conversionPair":    label,
				"exchangeRate":      rate,
				"convertedAmount":   creditText,
				"convertedCurrency": c.to,
				"transactionType":   ConversionTransactionType,
				"direction":         DirectionDebit,
				"description": fmt.Sprintf("Currency conversion: %s %s → %s %s",
					fromText, c.from, creditText, c.to),
			},
		}
		creditEntry := &models.LedgerEntry{
			Date:      date,
			Status:    models.StatusCompleted,
			Reference: creditRef,
			From:      models.Internal(user.ID),
			To:        models.Internal(user.ID),
			Kind:      models.KindConvert,
			Currency:  c.to,
			Amount:    credit,
			Metadata: models.JSON{
				"conversionPair":   label,
				"exchangeRate":     rate,
				"originalAmount":   fromText,
				"originalCurrency": c.from,
				"transactionType":  ConversionTransactionType,
				"direction":        DirectionCredit,
				"description": fmt.Sprintf("Currency conversion received: %s %s → %s %s",
					fromText, c.from, creditText, c.to),
			},
		}
		if err := tx.Ledger().Append(ctx, debit, creditEntry); err != nil {
			return err
		}

		res = &ConvertResult{
			Details: ConversionDetails{
				FromAmount:   c.fromAmount,
				FromCurrency: c.from,
				ToAmount:     credit,
				ToCurrency:   c.to,
				PairLabel:    label,
				ExchangeRate: c.rate,
			},
			Source:    AccountChange{Account: debited, PreviousBalance: locked[c.from].Balance},
			Target:    AccountChange{Account: credited, PreviousBalance: locked[c.to].Balance},
			Debit:     debit,
			Credit:    creditEntry,
			Timestamp: date,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBalanceChange(user.ID, c.from, res.Source.PreviousBalance, res.Source.Account.Balance)
	s.metrics.RecordBalanceChange(user.ID, c.to, res.Target.PreviousBalance, res.Target.Account.Balance)
	s.metrics.RecordTransactionVolume(c.from, c.fromAmount)
	s.log.WithFields(logrus.Fields{
		"operation": OpConvert,
		"user_id":   user.ID,
		"reference": res.Debit.Reference,
		"pair":      label,
		"amount":    fromText,
		"credited":  creditText,
	}).Info("transaction completed")
	s.publish(ctx, res.Debit, res.Credit)
	return res, nil
}
