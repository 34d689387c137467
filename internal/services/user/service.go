// Package user registers users, opens their accounts and assembles the
// account snapshot returned by the HTTP surface.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/repositories"
	"stase/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Service interface {
	Register(ctx context.Context, externalID string, input *models.CreateUserInput) (*Snapshot, error)
	LookupUser(ctx context.Context, email, username string) (*Summary, error)
	Details(ctx context.Context, user *models.User) (*Snapshot, error)
}

// Summary is the public view of a user found by check-user.
type Summary struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// Entry is a ledger row with its counterparties rendered as usernames.
// From and To are nil for the external side or an unknown user.
type Entry struct {
	ID              uuid.UUID          `json:"id"`
	Date            time.Time          `json:"date"`
	Status          models.EntryStatus `json:"status"`
	Reference       string             `json:"reference"`
	From            *string            `json:"from"`
	To              *string            `json:"to"`
	TransactionType models.EntryKind   `json:"transactionType"`
	Currency        models.Currency    `json:"currency"`
	Amount          decimal.Decimal    `json:"amount"`
	Metadata        models.JSON        `json:"metadata"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// Snapshot is a user with every account and ledger row, newest first.
type Snapshot struct {
	User         *models.User      `json:"user"`
	BankAccounts []*models.Account `json:"bankAccounts"`
	Transactions []Entry           `json:"transactions"`
}

type service struct {
	store repositories.Store
	log   *logrus.Logger
}

func NewService(store repositories.Store, log *logrus.Logger) Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{store: store, log: log}
}

func validateRegistration(externalID string, input *models.CreateUserInput) error {
	if strings.TrimSpace(externalID) == "" {
		return apperrors.ErrUnauthorized.WithMessage("missing identity subject")
	}

	v := validation.New()
	v.Required("firstName", input.FirstName)
	v.Required("lastName", input.LastName)
	v.Required("username", input.Username)
	v.Required("email", input.Email)
	if err := v.Err(apperrors.ErrMissingFields); err != nil {
		return err
	}

	v.MaxLength("firstName", input.FirstName, validation.MaxNameLength)
	v.MaxLength("lastName", input.LastName, validation.MaxNameLength)
	if err := v.Err(apperrors.ErrMissingFields.WithMessage("validation failed")); err != nil {
		return err
	}
	v.Username("username", input.Username)
	if err := v.Err(apperrors.ErrInvalidUsername); err != nil {
		return err
	}
	v.Email("email", input.Email)
	return v.Err(apperrors.ErrInvalidEmail)
}

func (s *service) Register(ctx context.Context, externalID string, input *models.CreateUserInput) (*Snapshot, error) {
	if input == nil {
		return nil, apperrors.ErrMissingFields
	}
	if err := validateRegistration(externalID, input); err != nil {
		return nil, err
	}

	user := &models.User{
		ExternalID: externalID,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		Username:   strings.ToLower(input.Username),
		Email:      strings.ToLower(input.Email),
	}

	var accounts []*models.Account
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		taken, err := identityTaken(ctx, tx.Users(), user)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.ErrUserExists
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}

		accounts = accounts[:0]
		for _, currency := range models.SupportedCurrencies() {
			account, err := newAccount(user, currency)
			if err != nil {
				return err
			}
			if err := tx.Accounts().Create(ctx, account); err != nil {
				return fmt.Errorf("open %s account: %w", currency, err)
			}
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, apperrors.ErrUserExists
		}
		return nil, apperrors.As(err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"accounts": len(accounts),
	}).Info("user registered")

	return &Snapshot{User: user, BankAccounts: accounts, Transactions: []Entry{}}, nil
}

func identityTaken(ctx context.Context, users repositories.UserRepository, user *models.User) (bool, error) {
	lookups := []func() (*models.User, error){
		func() (*models.User, error) { return users.GetByEmail(ctx, user.Email) },
		func() (*models.User, error) { return users.GetByUsername(ctx, user.Username) },
		func() (*models.User, error) { return users.GetByExternalID(ctx, user.ExternalID) },
	}
	for _, lookup := range lookups {
		_, err := lookup()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return false, err
		}
	}
	return false, nil
}

func (s *service) LookupUser(ctx context.Context, email, username string) (*Summary, error) {
	email, username = strings.TrimSpace(email), strings.TrimSpace(username)

	var (
		found *models.User
		err   error
	)
	switch {
	case email != "":
		found, err = s.store.Users().GetByEmail(ctx, email)
	case username != "":
		found, err = s.store.Users().GetByUsername(ctx, username)
	default:
		return nil, apperrors.ErrMissingFields.WithMessage("provide either an email or username to search for a user")
	}
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound.WithMessage("user does not exist")
		}
		return nil, apperrors.As(err)
	}
	// Both identifiers given must name the same user.
	if email != "" && username != "" && !strings.EqualFold(found.Username, username) {
		return nil, apperrors.ErrUserNotFound.WithMessage("user does not exist")
	}

	return &Summary{
		FullName:  found.FullName(),
		FirstName: found.FirstName,
		LastName:  found.LastName,
		Username:  found.Username,
		Email:     found.Email,
	}, nil
}

func (s *service) Details(ctx context.Context, user *models.User) (*Snapshot, error) {
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	accounts, err := s.store.Accounts().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.As(err)
	}
	rows, err := s.store.Ledger().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.As(err)
	}

	names, err := s.usernames(ctx, user, rows)
	if err != nil {
		return nil, apperrors.As(err)
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			ID:              row.ID,
			Date:            row.Date,
			Status:          row.Status,
			Reference:       row.Reference,
			From:            names.lookup(row.From),
			To:              names.lookup(row.To),
			TransactionType: row.Kind,
			Currency:        row.Currency,
			Amount:          row.Amount,
			Metadata:        row.Metadata,
			CreatedAt:       row.CreatedAt,
		}
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	return &Snapshot{User: user, BankAccounts: accounts, Transactions: entries}, nil
}

type usernameIndex map[uuid.UUID]string

func (idx usernameIndex) lookup(c models.Counterparty) *string {
	id, ok := c.UserID()
	if !ok {
		return nil
	}
	name, ok := idx[id]
	if !ok {
		return nil
	}
	return &name
}

// usernames resolves every internal counterparty in one query.
func (s *service) usernames(ctx context.Context, user *models.User, rows []*models.LedgerEntry) (usernameIndex, error) {
	idx := usernameIndex{user.ID: user.Username}
	var missing []uuid.UUID
	for _, row := range rows {
		for _, c := range []models.Counterparty{row.From, row.To} {
			id, ok := c.UserID()
			if !ok {
				continue
			}
			if _, seen := idx[id]; seen {
				continue
			}
			idx[id] = ""
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return idx, nil
	}

	users, err := s.store.Users().ListByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		delete(idx, id)
	}
	for _, u := range users {
		idx[u.ID] = u.Username
	}
	return idx, nil
}
