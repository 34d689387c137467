package user

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"stase/internal/models"
)

type bankProfile struct {
	name          string
	address       string
	swift         string
	accountPrefix string
}

var bankProfiles = map[models.Currency]bankProfile{
	models.CurrencyUSD: {"Stase Bank USA", "123 Wall Street, New York, NY 10005", "STASEUS33", "1234"},
	models.CurrencyCAD: {"Stase Bank Canada", "456 Bay Street, Toronto, ON M5V 2V6", "STASECA33", "5678"},
	models.CurrencyEUR: {"Stase Bank Europe", "789 Friedrichstraße, Berlin, 10117", "STASEDE33", "9012"},
	models.CurrencyGBP: {"Stase Bank UK", "321 Threadneedle Street, London, EC2R 8AY", "STASEGB33", "3456"},
}

const ibanBankCode = "12345678"

// newAccount builds a zero-balance account with generated bank details.
// EUR accounts carry an IBAN and GBP accounts a sort code.
func newAccount(user *models.User, currency models.Currency) (*models.Account, error) {
	profile, ok := bankProfiles[currency]
	if !ok {
		return nil, fmt.Errorf("no bank profile for %s", currency)
	}
	number, err := digits(8)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		UserID:        user.ID,
		Currency:      currency,
		AccountNumber: profile.accountPrefix + number,
		AccountName:   user.FullName(),
		BankName:      profile.name,
		BankAddress:   profile.address,
		SwiftCode:     profile.swift,
	}

	switch currency {
	case models.CurrencyEUR:
		check, err := digits(2)
		if err != nil {
			return nil, err
		}
		acct, err := digits(10)
		if err != nil {
			return nil, err
		}
		account.IBAN = "DE" + check + ibanBankCode + acct
	case models.CurrencyGBP:
		var parts [3]string
		for i := range parts {
			if parts[i], err = digits(2); err != nil {
				return nil, err
			}
		}
		account.SortCode = parts[0] + "-" + parts[1] + "-" + parts[2]
	}
	return account, nil
}

// digits returns n random decimal digits.
func digits(n int) (string, error) {
	buf := make([]byte, n)
	ten := big.NewInt(10)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate account digits: %w", err)
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}
