package handlers

import (
	"context"
	"fmt"
	"time"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/services/transaction"
	"stase/internal/services/user"
	"stase/internal/utils"
	"stase/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TransactionHandler struct {
	engine transaction.Service
	users  user.Service
	log    *logrus.Logger
}

func NewTransactionHandler(engine transaction.Service, users user.Service, log *logrus.Logger) *TransactionHandler {
	return &TransactionHandler{engine: engine, users: users, log: log}
}

type fundsInput struct {
	Amount          *decimal.Decimal `json:"amount"`
	AccountCurrency string           `json:"accountCurrency"`
	TransactionPin  string           `json:"transactionPin"`
}

type transferInput struct {
	Email           string           `json:"email"`
	Username        string           `json:"username"`
	AccountCurrency string           `json:"accountCurrency"`
	Amount          *decimal.Decimal `json:"amount"`
	Description     string           `json:"description"`
}

type convertInput struct {
	ConvertFromAmount          *decimal.Decimal `json:"convertFromAmount"`
	ConvertFromAccountCurrency string           `json:"convertFromAccountCurrency"`
	ConvertToAmount            *decimal.Decimal `json:"convertToAmount"`
	ConvertToAccountCurrency   string           `json:"convertToAccountCurrency"`
	CurrencyPairs              string           `json:"currencyPairs"`
}

func invalidBody(c *fiber.Ctx) error {
	return response.BadRequest(c, "invalid request body")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(models.MoneyPlaces)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (h *TransactionHandler) Deposit(c *fiber.Ctx) error {
	return h.funds(c, h.engine.Deposit, "deposited")
}

func (h *TransactionHandler) Withdraw(c *fiber.Ctx) error {
	return h.funds(c, h.engine.Withdraw, "withdrew")
}

type fundsOp func(ctx context.Context, u *models.User, req transaction.FundsRequest) (*transaction.FundsResult, error)

func (h *TransactionHandler) funds(c *fiber.Ctx, op fundsOp, verb string) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return response.Error(c, apperrors.ErrUnauthorized)
	}
	var in fundsInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	ctx := c.UserContext()
	res, err := op(ctx, u, transaction.FundsRequest{
		Amount:   in.Amount,
		Currency: in.AccountCurrency,
		Pin:      in.TransactionPin,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, fiber.StatusOK,
		fmt.Sprintf("Successfully %s %s %s", verb, money(res.Amount), res.Currency),
		fiber.Map{
			"transactionId":   res.Entry.ID,
			"reference":       res.Reference,
			"amount":          money(res.Amount),
			"currency":        res.Currency,
			"previousBalance": money(res.PreviousBalance),
			"newBalance":      money(res.NewBalance),
			"timestamp":       timestamp(res.Timestamp),
		},
		snapshotOf(ctx, h.users, h.log, u),
	)
}

func (h *TransactionHandler) Transfer(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return response.Error(c, apperrors.ErrUnauthorized)
	}
	var in transferInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	ctx := c.UserContext()
	res, err := h.engine.Transfer(ctx, u, transaction.TransferRequest{
		Email:       in.Email,
		Username:    in.Username,
		Currency:    in.AccountCurrency,
		Amount:      in.Amount,
		Description: in.Description,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, fiber.StatusOK,
		fmt.Sprintf("Successfully transferred %s %s to %s", money(res.Amount), res.Currency, res.Receiver.User.FullName()),
		fiber.Map{
			"transactionReference": res.Reference,
			"amount":               money(res.Amount),
			"currency":             res.Currency,
			"sender": fiber.Map{
				"name":       res.Sender.User.FullName(),
				"newBalance": money(res.Sender.NewBalance),
			},
			"receiver": fiber.Map{
				"name":       res.Receiver.User.FullName(),
				"newBalance": money(res.Receiver.NewBalance),
			},
			"timestamp": timestamp(res.Timestamp),
		},
		snapshotOf(ctx, h.users, h.log, u),
	)
}

func (h *TransactionHandler) Convert(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return response.Error(c, apperrors.ErrUnauthorized)
	}
	var in convertInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	ctx := c.UserContext()
	res, err := h.engine.Convert(ctx, u, transaction.ConvertRequest{
		FromAmount:   in.ConvertFromAmount,
		FromCurrency: in.ConvertFromAccountCurrency,
		ToAmount:     in.ConvertToAmount,
		ToCurrency:   in.ConvertToAccountCurrency,
		PairLabel:    in.CurrencyPairs,
	})
	if err != nil {
		return response.Error(c, err)
	}

	d := res.Details
	return response.Success(c, fiber.StatusOK, "Currency conversion completed successfully",
		fiber.Map{
			"conversionDetails": fiber.Map{
				"convertFromAmount":          money(d.FromAmount),
				"convertFromAccountCurrency": d.FromCurrency,
				"convertToAmount":            money(d.ToAmount),
				"convertToAccountCurrency":   d.ToCurrency,
				"currencyPairs":              d.PairLabel,
				"exchangeRate":               d.ExchangeRate.StringFixed(models.RatePlaces),
			},
			"updatedAccounts": fiber.Map{
				"sourceAccount": accountChange(res.Source),
				"targetAccount": accountChange(res.Target),
			},
			"transactions": fiber.Map{
				"debitTransaction":  entrySummary(res.Debit),
				"creditTransaction": entrySummary(res.Credit),
			},
			"timestamp": timestamp(res.Timestamp),
		},
		snapshotOf(ctx, h.users, h.log, u),
	)
}

func accountChange(a transaction.AccountChange) fiber.Map {
	return fiber.Map{
		"accountCurrency": a.Account.Currency,
		"balance":         money(a.Account.Balance),
		"previousBalance": money(a.PreviousBalance),
	}
}

func entrySummary(e *models.LedgerEntry) fiber.Map {
	return fiber.Map{
		"id":              e.ID,
		"reference":       e.Reference,
		"transactionType": e.Kind,
		"amount":          money(e.Amount),
		"currency":        e.Currency,
	}
}
