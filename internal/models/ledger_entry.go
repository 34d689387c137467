package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntryStatus string

const (
	StatusCompleted EntryStatus = "completed"
	StatusPending   EntryStatus = "pending"
	StatusFailed    EntryStatus = "failed"
)

// EntryKind is the operation a ledger row records.
type EntryKind string

const (
	KindDeposit  EntryKind = "deposit"
	KindWithdraw EntryKind = "withdraw"
	KindSend     EntryKind = "send"
	KindReceive  EntryKind = "receive"
	KindConvert  EntryKind = "convert"
)

var (
	ErrBothExternal      = errors.New("ledger entry cannot be external on both sides")
	ErrNonPositiveAmount = errors.New("ledger entry amount must be greater than zero")
	ErrMissingReference  = errors.New("ledger entry reference is required")
	ErrUnsupportedKind   = errors.New("unsupported ledger entry kind")
	ErrAppendOnly        = errors.New("ledger entries are append-only")
)

// LedgerEntry is one immutable money movement.
type LedgerEntry struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Date      time.Time       `gorm:"not null;index" json:"date"`
	Status    EntryStatus     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Reference string          `gorm:"not null;uniqueIndex" json:"reference"`
	From      Counterparty    `gorm:"column:from_user_id;type:uuid;index" json:"from"`
	To        Counterparty    `gorm:"column:to_user_id;type:uuid;index" json:"to"`
	Kind      EntryKind       `gorm:"column:transaction_type;type:varchar(16);not null;index" json:"transactionType"`
	Currency  Currency        `gorm:"type:varchar(3);not null;index" json:"currency"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Metadata  JSON            `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Validate checks the entry's own invariants before it is stored.
func (e *LedgerEntry) Validate() error {
	if e.From.IsExternal() && e.To.IsExternal() {
		return ErrBothExternal
	}
	if !e.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if e.Reference == "" {
		return ErrMissingReference
	}
	if !e.Currency.IsSupported() {
		return errors.New("unsupported ledger entry currency: " + e.Currency.String())
	}
	switch e.Kind {
	case KindDeposit, KindWithdraw, KindSend, KindReceive, KindConvert:
	default:
		return ErrUnsupportedKind
	}
	return nil
}

// Involves reports whether userID is on either side of the entry.
func (e *LedgerEntry) Involves(userID uuid.UUID) bool {
	return e.From.Is(userID) || e.To.Is(userID)
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return e.Validate()
}

func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}
