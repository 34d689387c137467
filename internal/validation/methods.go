package validation

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "stase/internal/errors"
	"stase/internal/models"

	"github.com/shopspring/decimal"
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRegex = regexp.MustCompile(fmt.Sprintf(`^[a-zA-Z0-9][a-zA-Z0-9_]{%d,%d}[a-zA-Z0-9]$`,
			MinUsernameLength-2, MaxUsernameLength-2))
)

// Validator collects field errors.
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records the first error for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks that a string is not blank.
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(IsValidEmail(email), field, "must be a valid email address")
}

// Username validates username format
func (v *Validator) Username(field, username string) {
	v.Check(IsValidUsername(username), field, fmt.Sprintf(
		"must be %d-%d characters, start and end with a letter or number, and contain only letters, numbers, and underscores",
		MinUsernameLength, MaxUsernameLength))
}

// Pin validates a raw transaction PIN.
func (v *Validator) Pin(field, pin string) {
	v.Check(IsValidPin(pin), field, fmt.Sprintf("must be exactly %d digits", PinLength))
}

// Amount checks presence and positivity. A nil amount counts as missing.
func (v *Validator) Amount(field string, amount *decimal.Decimal) {
	if amount == nil {
		v.AddError(field, "is required")
		return
	}
	v.Check(amount.IsPositive(), field, "must be greater than zero")
}

// Precision checks the amount has at most two decimal places.
func (v *Validator) Precision(field string, amount *decimal.Decimal) {
	if amount == nil {
		return
	}
	v.Check(models.HasMoneyPrecision(*amount), field, "must have at most 2 decimal places")
}

// Currency parses a currency code and records an error when unsupported.
func (v *Validator) Currency(field, raw string) models.Currency {
	if strings.TrimSpace(raw) == "" {
		v.AddError(field, "is required")
		return ""
	}
	c, ok := models.ParseCurrency(raw)
	v.Check(ok, field, "must be one of "+models.SupportedCurrencyList())
	return c
}

// Err converts collected errors into a validation DomainError, or nil.
func (v *Validator) Err(base *apperrors.DomainError) error {
	if v.Valid() {
		return nil
	}
	if base == nil {
		base = apperrors.ErrMissingFields.WithMessage("validation failed")
	}
	details := make(map[string]interface{}, len(v.Errors))
	for field, msg := range v.Errors {
		details[field] = msg
	}
	return base.WithDetails(details)
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// IsValidPin reports whether pin is exactly PinLength ASCII digits.
func IsValidPin(pin string) bool {
	if len(pin) != PinLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}
