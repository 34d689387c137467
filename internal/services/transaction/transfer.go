package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/repositories"
	"stase/internal/services/reference"
	"stase/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func (s *service) Transfer(ctx context.Context, sender *models.User, req TransferRequest) (*TransferResult, error) {
	start := time.Now()
	res, err := s.transfer(ctx, sender, req)
	s.observe(OpTransfer, start, err)
	return res, err
}

func (s *service) validateTransfer(req TransferRequest) (decimal.Decimal, models.Currency, error) {
	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)
	if (email == "") == (username == "") {
		return decimal.Zero, "", apperrors.ErrInvalidIdentifier
	}

	v := validation.New()
	v.Required("accountCurrency", req.Currency)
	if req.Amount == nil {
		v.AddError("amount", "is required")
	}
	if err := v.Err(apperrors.ErrMissingFields); err != nil {
		return decimal.Zero, "", err
	}

	currency := v.Currency("accountCurrency", req.Currency)
	if err := v.Err(invalidCurrency()); err != nil {
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
	if email != "" {
		v.Email("email", email)
		if err := v.Err(apperrors.ErrInvalidEmail); err != nil {
			return decimal.Zero, "", err
		}
	}
	if username != "" {
		v.Username("username", username)
		if err := v.Err(apperrors.ErrInvalidUsername); err != nil {
			return decimal.Zero, "", err
		}
	}
	return *req.Amount, currency, nil
}

func (s *service) findRecipient(ctx context.Context, req TransferRequest) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if email := strings.TrimSpace(req.Email); email != "" {
		user, err = s.store.Users().GetByEmail(ctx, email)
	} else {
		user, err = s.store.Users().GetByUsername(ctx, strings.TrimSpace(req.Username))
	}
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrRecipientNotFound)
	}
	return user, nil
}

func (s *service) transfer(ctx context.Context, sender *models.User, req TransferRequest) (*TransferResult, error) {
	amount, currency, err := s.validateTransfer(req)
	if err != nil {
		return nil, err
	}
	recipient, err := s.findRecipient(ctx, req)
	if err != nil {
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, apperrors.ErrSelfTransfer
	}

	senderAccount, err := s.store.Accounts().Get(ctx, sender.ID, currency)
	if err != nil {
		return nil, lookupErr(err, accountNotFound(apperrors.ErrNoSenderAccount, currency))
	}
	if senderAccount.Balance.LessThan(amount) {
		return nil, insufficientFunds(amount, senderAccount.Balance, currency)
	}
	if _, err := s.store.Accounts().Get(ctx, recipient.ID, currency); err != nil {
		return nil, lookupErr(err, accountNotFound(apperrors.ErrNoRecipientAccount, currency))
	}

	senderName, receiverName := sender.FullName(), recipient.FullName()
	description := strings.TrimSpace(req.Description)

	var res *TransferResult
	err = s.runUnit(ctx, OpTransfer, func(tx repositories.Store) error {
		locked, err := lockInOrder(ctx, tx, currency, sender.ID, recipient.ID)
		if err != nil {
			return err
		}
		if locked[sender.ID].Balance.LessThan(amount) {
			return insufficientFunds(amount, locked[sender.ID].Balance, currency)
		}

		debited, err := tx.Accounts().AdjustBalance(ctx, sender.ID, currency, amount.Neg())
		if err != nil {
			return err
		}
		credited, err := tx.Accounts().AdjustBalance(ctx, recipient.ID, currency, amount)
		if err != nil {
			return err
		}

		sendRef, err := s.nextReference(reference.PrefixSend)
		if err != nil {
			return err
		}
		receiveRef, err := s.nextReference(reference.PrefixReceive)
		if err != nil {
			return err
		}

		date := s.now()
		send := &models.LedgerEntry{
			Date:      date,
			Status:    models.StatusCompleted,
			Reference: sendRef,
			From:      models.Internal(sender.ID),
			To:        models.Internal(recipient.ID),
			Kind:      models.KindSend,
			Currency:  currency,
			Amount:    amount,
			Metadata: models.JSON{
				"senderName":   senderName,
				"receiverName": receiverName,
				"description":  orDefault(description, "Money transfer to "+receiverName),
			},
		}
		receive := &models.LedgerEntry{
			Date:      date,
			Status:    models.StatusCompleted,
			Reference: receiveRef,
			From:      models.Internal(sender.ID),
			To:        models.Internal(recipient.ID),
			Kind:      models.KindReceive,
			Currency:  currency,
			Amount:    amount,
			Metadata: models.JSON{
				"senderName":   senderName,
				"receiverName": receiverName,
				"description":  orDefault(description, "Money transfer from "+senderName),
			},
		}
		if err := tx.Ledger().Append(ctx, send, receive); err != nil {
			return err
		}

		res = &TransferResult{
			Reference:    sendRef,
			Amount:       amount,
			Currency:     currency,
			Sender:       Party{User: sender, Account: debited, NewBalance: debited.Balance},
			Receiver:     Party{User: recipient, Account: credited, NewBalance: credited.Balance},
			Timestamp:    date,
			SendEntry:    send,
			ReceiveEntry: receive,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBalanceChange(sender.ID, currency, res.Sender.NewBalance.Add(amount), res.Sender.NewBalance)
	s.metrics.RecordBalanceChange(recipient.ID, currency, res.Receiver.NewBalance.Sub(amount), res.Receiver.NewBalance)
	s.metrics.RecordTransactionVolume(currency, amount)
	s.log.WithFields(logrus.Fields{
		"operation":    OpTransfer,
		"user_id":      sender.ID,
		"recipient_id": recipient.ID,
		"reference":    res.Reference,
		"currency":     currency,
		"amount":       amount.StringFixed(models.MoneyPlaces),
	}).Info("transaction completed")
	s.publish(ctx, res.SendEntry, res.ReceiveEntry)
	return res, nil
}

// lockInOrder row-locks each user's account for currency, always in
// ascending user id order so concurrent opposite transfers cannot
// deadlock.
func lockInOrder(ctx context.Context, tx repositories.Store, currency models.Currency, a, b uuid.UUID) (map[uuid.UUID]*models.Account, error) {
	first, second := a, b
	if strings.Compare(first.String(), second.String()) > 0 {
		first, second = second, first
	}
	locked := make(map[uuid.UUID]*models.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		account, err := tx.Accounts().GetForUpdate(ctx, id, currency)
		if err != nil {
			return nil, fmt.Errorf("lock account %s/%s: %w", id, currency, err)
		}
		locked[id] = account
	}
	return locked, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
