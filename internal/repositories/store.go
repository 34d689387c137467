package repositories

import (
	"context"
	"errors"

	"stase/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrDuplicateReference = errors.New("duplicate ledger reference")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNegativeBalance    = errors.New("balance would become negative")
	ErrTransient          = errors.New("transient store failure")
)

// UserRepository reads and writes users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// GetByEmail and GetByUsername match case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
	UpdateTransactionPin(ctx context.Context, id uuid.UUID, hash string) error
}

// AccountRepository holds one balance record per (user, currency).
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	Get(ctx context.Context, userID uuid.UUID, currency models.Currency) (*models.Account, error)

	// GetForUpdate locks the row until the enclosing unit resolves.
	GetForUpdate(ctx context.Context, userID uuid.UUID, currency models.Currency) (*models.Account, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error)

	// AdjustBalance adds delta to the stored balance in one atomic update
	// and returns the updated account. Callers check funds first; the
	// schema rejects a negative result with ErrNegativeBalance.
	AdjustBalance(ctx context.Context, userID uuid.UUID, currency models.Currency, delta decimal.Decimal) (*models.Account, error)

	CountNegativeBalances(ctx context.Context) (int64, error)
}

// LedgerRepository is append-only.
type LedgerRepository interface {
	Append(ctx context.Context, entries ...*models.LedgerEntry) error
	GetByReference(ctx context.Context, reference string) (*models.LedgerEntry, error)

	// ListByUser returns entries on either side of userID, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error)
}

// Store groups the repositories and runs atomic units over them.
type Store interface {
	Users() UserRepository
	Accounts() AccountRepository
	Ledger() LedgerRepository

	// ExecuteInTransaction runs fn against a store bound to one unit.
	// The unit commits when fn returns nil and rolls back otherwise,
	// including when fn panics.
	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

// IsRetryable reports whether a failed unit may be run again as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDuplicateReference) || errors.Is(err, ErrTransient)
}
