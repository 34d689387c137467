package transaction

import (
	"context"
	"time"

	"stase/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the transaction engine.
type Service interface {
	Deposit(ctx context.Context, user *models.User, req FundsRequest) (*FundsResult, error)
	Withdraw(ctx context.Context, user *models.User, req FundsRequest) (*FundsResult, error)
	Transfer(ctx context.Context, sender *models.User, req TransferRequest) (*TransferResult, error)
	Convert(ctx context.Context, user *models.User, req ConvertRequest) (*ConvertResult, error)
}

// RateTable prices conversions.
type RateTable interface {
	Convert(amount decimal.Decimal, from, to models.Currency) (decimal.Decimal, error)
	Rate(from, to models.Currency) (decimal.Decimal, error)
	ValidatePairLabel(label string, from, to models.Currency) error
	IsSupportedPair(from, to models.Currency) bool
}

// ReferenceGenerator issues ledger references.
type ReferenceGenerator interface {
	Next(prefix string) (string, error)
}

// PinAuthorizer gates deposits and withdrawals.
type PinAuthorizer interface {
	Authorize(user *models.User, rawPin string) error
}

// EventPublisher announces committed ledger rows.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, entries ...*models.LedgerEntry) error
}

// MetricsCollector defines the interface for collecting engine metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Balance metrics
	RecordBalanceChange(userID uuid.UUID, currency models.Currency, oldBalance, newBalance decimal.Decimal)

	// Error metrics
	RecordError(operation, errType string)
	RecordRetry(operation string, attempt int)

	// Transaction metrics
	RecordTransactionVolume(currency models.Currency, amount decimal.Decimal)
}
