package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account is a user's balance record in one currency.
type Account struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_user_currency" json:"userId"`
	Currency      Currency        `gorm:"type:varchar(3);not null;uniqueIndex:idx_accounts_user_currency" json:"accountCurrency"`
	Balance       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_accounts_balance_non_negative,balance >= 0" json:"balance"`
	AccountNumber string          `gorm:"not null" json:"accountNumber"`
	AccountName   string          `gorm:"not null" json:"accountName"`
	BankName      string          `gorm:"not null" json:"bankName"`
	BankAddress   string          `json:"bankAddress"`
	SwiftCode     string          `json:"swiftCode"`
	IBAN          string          `gorm:"column:iban" json:"iban,omitempty"`
	SortCode      string          `json:"sortCode,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	// Balances start at zero and only move through AdjustBalance.
	a.Balance = decimal.Zero
	return nil
}
