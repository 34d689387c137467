package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity the ledger's accounts and entries refer to.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID     string    `gorm:"uniqueIndex;not null" json:"clerkUserId"`
	FirstName      string    `gorm:"not null" json:"firstName"`
	LastName       string    `gorm:"not null" json:"lastName"`
	Username       string    `gorm:"uniqueIndex;not null;check:chk_users_username_lower,username = lower(username)" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null;check:chk_users_email_lower,email = lower(email)" json:"email"`
	TransactionPin string    `gorm:"not null;default:''" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FullName is the display name used in ledger metadata.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasTransactionPin reports whether a PIN hash is configured.
func (u *User) HasTransactionPin() bool {
	return u.TransactionPin != ""
}

// CreateUserInput is the registration payload.
type CreateUserInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}
