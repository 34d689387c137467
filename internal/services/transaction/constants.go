package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default configuration values
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 50 * time.Millisecond

	DefaultPublishTimeout = 2 * time.Second
)

// Operation names used in logs and metrics.
const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpTransfer = "transfer"
	OpConvert  = "convert"
)

// Operation results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// DefaultMaxDeposit caps a single deposit.
	DefaultMaxDeposit = decimal.NewFromInt(100000)

	// RateTolerance bounds the gap between the table rate and the rate
	// implied by the request's amounts.
	RateTolerance = decimal.RequireFromString("0.001")

	// AmountTolerance bounds the gap between the recomputed converted
	// amount and the requested one.
	AmountTolerance = decimal.RequireFromString("0.01")
)

// ConversionTransactionType tags conversion ledger rows in metadata.
const ConversionTransactionType = "currency_conversion"

// Conversion directions
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)
