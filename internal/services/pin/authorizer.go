// Package pin hashes and verifies transaction PINs.
package pin

import (
	"context"
	"errors"
	"fmt"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/repositories"
	"stase/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Authorizer stores PIN hashes through a UserRepository.
type Authorizer struct {
	users repositories.UserRepository
	cost  int
}

// NewAuthorizer clamps cost into bcrypt's accepted range.
func NewAuthorizer(users repositories.UserRepository, cost int) *Authorizer {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Authorizer{users: users, cost: cost}
}

// SetSecret replaces the user's PIN hash. rawPin must be exactly four digits.
func (a *Authorizer) SetSecret(ctx context.Context, userID uuid.UUID, rawPin string) error {
	if !validation.IsValidPin(rawPin) {
		return apperrors.ErrInvalidPinFormat
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPin), a.cost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := a.users.UpdateTransactionPin(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("store pin: %w", err)
	}
	return nil
}

// HasSecret reports whether the user configured a PIN.
func (a *Authorizer) HasSecret(user *models.User) bool {
	return user != nil && user.HasTransactionPin()
}

// Verify compares rawPin against the stored hash. It is false when no
// PIN is configured.
func (a *Authorizer) Verify(user *models.User, rawPin string) bool {
	if !a.HasSecret(user) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.TransactionPin), []byte(rawPin)) == nil
}

// Authorize runs the PIN gate used by deposit and withdraw: a missing
// PIN and a wrong PIN are distinct failures.
func (a *Authorizer) Authorize(user *models.User, rawPin string) error {
	if !a.HasSecret(user) {
		return apperrors.ErrPinNotConfigured
	}
	if !a.Verify(user, rawPin) {
		return apperrors.ErrInvalidPin
	}
	return nil
}
