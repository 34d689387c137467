package transaction

import (
	"context"
	"errors"
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

func (s *service) Deposit(ctx context.Context, user *models.User, req FundsRequest) (*FundsResult, error) {
	start := time.Now()
	res, err := s.deposit(ctx, user, req)
	s.observe(OpDeposit, start, err)
	return res, err
}

func (s *service) Withdraw(ctx context.Context, user *models.User, req FundsRequest) (*FundsResult, error) {
	start := time.Now()
	res, err := s.withdraw(ctx, user, req)
	s.observe(OpWithdraw, start, err)
	return res, err
}

// validateFunds checks the fields shared by deposit and withdraw.
func (s *service) validateFunds(req FundsRequest) (decimal.Decimal, models.Currency, error) {
	v := validation.New()
	if req.Amount == nil {
		v.AddError("amount", "is required")
	}
	v.Required("accountCurrency", req.Currency)
	v.Required("transactionPin", req.Pin)
	if err := v.Err(apperrors.ErrMissingFields); err != nil {
		return decimal.Zero, "", err
	}

	v.Amount("amount", req.Amount)
	if err := v.Err(apperrors.ErrInvalidAmount); err != nil {
		return decimal.Zero, "", err
	}
	v.Precision("amount", req.Amount)
	if err := v.Err(apperrors.ErrInvalidPrecision); err != nil {
		return decimal.Zero, "", err
	}
	currency := v.Currency("accountCurrency", req.Currency)
	if err := v.Err(invalidCurrency()); err != nil {
		return decimal.Zero, "", err
	}
	return *req.Amount, currency, nil
}

func (s *service) deposit(ctx context.Context, user *models.User, req FundsRequest) (*FundsResult, error) {
	amount, currency, err := s.validateFunds(req)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(s.config.MaxDeposit) {
		return nil, apperrors.ErrMaxLimitExceeded.
			WithMessage("Maximum deposit limit is $" + s.config.MaxDeposit.String()).
			WithDetails(map[string]interface{}{"maxAmount": s.config.MaxDeposit.String()})
	}
	if err := s.pins.Authorize(user, req.Pin); err != nil {
		return nil, err
	}
	if _, err := s.store.Accounts().Get(ctx, user.ID, currency); err != nil {
		return nil, lookupErr(err, accountNotFound(apperrors.ErrAccountNotFound, currency))
	}

	var res *FundsResult
	err = s.runUnit(ctx, OpDeposit, func(tx repositories.Store) error {
		account, err := tx.Accounts().AdjustBalance(ctx, user.ID, currency, amount)
		if err != nil {
			return err
		}
		ref, err := s.nextReference(reference.PrefixDeposit)
		if err != nil {
			return err
		}

		previous := account.Balance.Sub(amount)
		entry := &models.LedgerEntry{
			Date:      s.now(),
			Status:    models.StatusCompleted,
			Reference: ref,
			From:      models.External(),
			To:        models.Internal(user.ID),
			Kind:      models.KindDeposit,
			Currency:  currency,
			Amount:    amount,
			Metadata: models.JSON{
				"previousBalance": previous.StringFixed(models.MoneyPlaces),
				"newBalance":      account.Balance.StringFixed(models.MoneyPlaces),
				"description":     fmt.Sprintf("Deposit of %s %s", amount.StringFixed(models.MoneyPlaces), currency),
			},
		}
		if err := tx.Ledger().Append(ctx, entry); err != nil {
			return err
		}

		res = &FundsResult{
			Reference:       ref,
			Amount:          amount,
			Currency:        currency,
			PreviousBalance: previous,
			NewBalance:      account.Balance,
			Timestamp:       entry.Date,
			Account:         account,
			Entry:           entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.completed(ctx, OpDeposit, user, res)
	return res, nil
}

func (s *service) withdraw(ctx context.Context, user *models.User, req FundsRequest) (*FundsResult, error) {
	amount, currency, err := s.validateFunds(req)
	if err != nil {
		return nil, err
	}
	if err := s.pins.Authorize(user, req.Pin); err != nil {
		return nil, err
	}
	account, err := s.store.Accounts().Get(ctx, user.ID, currency)
	if err != nil {
		return nil, lookupErr(err, accountNotFound(apperrors.ErrAccountNotFound, currency))
	}
	if amount.GreaterThan(account.Balance) {
		return nil, insufficientFunds(amount, account.Balance, currency)
	}

	var res *FundsResult
	err = s.runUnit(ctx, OpWithdraw, func(tx repositories.Store) error {
		locked, err := tx.Accounts().GetForUpdate(ctx, user.ID, currency)
		if err != nil {
			return err
		}
		if amount.GreaterThan(locked.Balance) {
			return insufficientFunds(amount, locked.Balance, currency)
		}

		account, err := tx.Accounts().AdjustBalance(ctx, user.ID, currency, amount.Neg())
		if err != nil {
			return err
		}
		ref, err := s.nextReference(reference.PrefixWithdraw)
		if err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			Date:      s.now(),
			Status:    models.StatusCompleted,
			Reference: ref,
			From:      models.Internal(user.ID),
			To:        models.External(),
			Kind:      models.KindWithdraw,
			Currency:  currency,
			Amount:    amount,
			Metadata: models.JSON{
				"previousBalance": locked.Balance.StringFixed(models.MoneyPlaces),
				"newBalance":      account.Balance.StringFixed(models.MoneyPlaces),
				"description":     fmt.Sprintf("Withdrawal of %s %s", amount.StringFixed(models.MoneyPlaces), currency),
			},
		}
		if err := tx.Ledger().Append(ctx, entry); err != nil {
			return err
		}

		res = &FundsResult{
			Reference:       ref,
			Amount:          amount,
			Currency:        currency,
			PreviousBalance: locked.Balance,
			NewBalance:      account.Balance,
			Timestamp:       entry.Date,
			Account:         account,
			Entry:           entry,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			s.log.WithFields(logrus.Fields{"user_id": user.ID, "currency": currency}).
				Info("withdrawal rejected after balance changed")
		}
		return nil, err
	}

	s.completed(ctx, OpWithdraw, user, res)
	return res, nil
}

// completed logs, records and publishes a committed deposit or withdrawal.
func (s *service) completed(ctx context.Context, op string, user *models.User, res *FundsResult) {
	s.metrics.RecordBalanceChange(user.ID, res.Currency, res.PreviousBalance, res.NewBalance)
	s.metrics.RecordTransactionVolume(res.Currency, res.Amount)
	s.log.WithFields(logrus.Fields{
		"operation": op,
		"user_id":   user.ID,
		"reference": res.Reference,
		"currency":  res.Currency,
		"amount":    res.Amount.StringFixed(models.MoneyPlaces),
	}).Info("transaction completed")
	s.publish(ctx, res.Entry)
}
