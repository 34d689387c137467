// Package events defines the messages published after a ledger unit commits.
package events

import (
	"context"
	"time"

	"stase/internal/models"

	"github.com/shopspring/decimal"
)

const TypeTransactionCompleted = "transaction.completed"

// TransactionCompleted announces one committed ledger row. From and To
// hold a user id or "external".
type TransactionCompleted struct {
	Type            string           `json:"type"`
	EntryID         string           `json:"entry_id"`
	Reference       string           `json:"reference"`
	TransactionType models.EntryKind `json:"transaction_type"`
	FromAccount     string           `json:"from_account"`
	ToAccount       string           `json:"to_account"`
	Currency        models.Currency  `json:"currency"`
	Amount          decimal.Decimal  `json:"amount"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

func NewTransactionCompleted(e *models.LedgerEntry) TransactionCompleted {
	return TransactionCompleted{
		Type:            TypeTransactionCompleted,
		EntryID:         e.ID.String(),
		Reference:       e.Reference,
		TransactionType: e.Kind,
		FromAccount:     e.From.String(),
		ToAccount:       e.To.String(),
		Currency:        e.Currency,
		Amount:          e.Amount,
		OccurredAt:      e.Date,
	}
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishCompleted(ctx context.Context, entries ...*models.LedgerEntry) error {
	return nil
}
