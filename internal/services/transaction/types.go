package transaction

import (
	"time"

	"stase/internal/models"

	"github.com/shopspring/decimal"
)

// Config tunes the engine.
type Config struct {
	MaxDeposit   decimal.Decimal
	MaxRetries   int
	RetryBackoff time.Duration
	// PublishTimeout bounds the post-commit event write.
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxDeposit:     DefaultMaxDeposit,
		MaxRetries:     DefaultMaxRetries,
		RetryBackoff:   DefaultRetryBackoff,
		PublishTimeout: DefaultPublishTimeout,
	}
}

// FundsRequest is a deposit or withdrawal. A nil Amount is missing.
type FundsRequest struct {
	Amount   *decimal.Decimal
	Currency string
	Pin      string
}

// FundsResult describes a committed deposit or withdrawal.
type FundsResult struct {
	Reference       string
	Amount          decimal.Decimal
	Currency        models.Currency
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Timestamp       time.Time
	Account         *models.Account
	Entry           *models.LedgerEntry
}

// TransferRequest names the recipient by exactly one of Email or Username.
type TransferRequest struct {
	Email       string
	Username    string
	Currency    string
	Amount      *decimal.Decimal
	Description string
}

// Party is one side of a transfer after it committed.
type Party struct {
	User       *models.User
	Account    *models.Account
	NewBalance decimal.Decimal
}

// TransferResult describes a committed transfer.
type TransferResult struct {
	Reference    string
	Amount       decimal.Decimal
	Currency     models.Currency
	Sender       Party
	Receiver     Party
	Timestamp    time.Time
	SendEntry    *models.LedgerEntry
	ReceiveEntry *models.LedgerEntry
}

// ConvertRequest moves value between two of the caller's accounts.
type ConvertRequest struct {
	FromAmount   *decimal.Decimal
	FromCurrency string
	ToAmount     *decimal.Decimal
	ToCurrency   string
	PairLabel    string
}

// ConversionDetails are the authoritative terms a conversion ran at.
type ConversionDetails struct {
	FromAmount   decimal.Decimal
	FromCurrency models.Currency
	ToAmount     decimal.Decimal
	ToCurrency   models.Currency
	PairLabel    string
	ExchangeRate decimal.Decimal
}

// AccountChange is an account after an operation and its prior balance.
type AccountChange struct {
	Account         *models.Account
	PreviousBalance decimal.Decimal
}

// ConvertResult describes a committed conversion.
type ConvertResult struct {
	Details   ConversionDetails
	Source    AccountChange
	Target    AccountChange
	Debit     *models.LedgerEntry
	Credit    *models.LedgerEntry
	Timestamp time.Time
}
