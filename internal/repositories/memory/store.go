// Package memory is an in-process Store. Units of work run one at a time
// under a mutex and restore a snapshot when they abort.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stase/internal/models"
	"stase/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type accountKey struct {
	userID   uuid.UUID
	currency models.Currency
}

type data struct {
	users    map[uuid.UUID]models.User
	accounts map[accountKey]models.Account
	entries  []models.LedgerEntry
	refs     map[string]struct{}
}

func newData() *data {
	return &data{
		users:    make(map[uuid.UUID]models.User),
		accounts: make(map[accountKey]models.Account),
		refs:     make(map[string]struct{}),
	}
}

func (d *data) clone() *data {
	cp := &data{
		users:    make(map[uuid.UUID]models.User, len(d.users)),
		accounts: make(map[accountKey]models.Account, len(d.accounts)),
		entries:  make([]models.LedgerEntry, len(d.entries)),
		refs:     make(map[string]struct{}, len(d.refs)),
	}
	for k, v := range d.users {
		cp.users[k] = v
	}
	for k, v := range d.accounts {
		cp.accounts[k] = v
	}
	copy(cp.entries, d.entries)
	for k := range d.refs {
		cp.refs[k] = struct{}{}
	}
	return cp
}

type shared struct {
	mu         sync.Mutex
	data       *data
	appendHook func(*models.LedgerEntry) error
}

// Store implements repositories.Store in memory.
type Store struct {
	shared *shared
	inTx   bool
}

var _ repositories.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{shared: &shared{data: newData()}}
}

// SetAppendHook installs a function run before each ledger insert; a
// non-nil return fails the insert. Used to inject store faults.
func (s *Store) SetAppendHook(hook func(*models.LedgerEntry) error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.appendHook = hook
}

// with runs fn against the current data, taking the lock unless the
// store is bound to a unit that already holds it.
func (s *Store) with(fn func(d *data) error) error {
	if !s.inTx {
		s.shared.mu.Lock()
		defer s.shared.mu.Unlock()
	}
	return fn(s.shared.data)
}

func (s *Store) Users() repositories.UserRepository {
	return userRepository{s}
}

func (s *Store) Accounts() repositories.AccountRepository {
	return accountRepository{s}
}

func (s *Store) Ledger() repositories.LedgerRepository {
	return ledgerRepository{s}
}

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()

	snapshot := s.shared.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.shared.data = snapshot
		}
	}()

	if err := fn(&Store{shared: s.shared, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

type userRepository struct{ s *Store }

func (r userRepository) Create(ctx context.Context, user *models.User) error {
	return r.s.with(func(d *data) error {
		for _, u := range d.users {
			if u.ExternalID == user.ExternalID ||
				strings.EqualFold(u.Email, user.Email) ||
				strings.EqualFold(u.Username, user.Username) {
				return repositories.ErrDuplicateKey
			}
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		now := time.Now().UTC()
		user.CreatedAt, user.UpdatedAt = now, now
		d.users[user.ID] = *user
		return nil
	})
}

func (r userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ExternalID == externalID })
}

func (r userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r userRepository) find(match func(*models.User) bool) (*models.User, error) {
	var found *models.User
	err := r.s.with(func(d *data) error {
		for _, u := range d.users {
			if match(&u) {
				cp := u
				found = &cp
				return nil
			}
		}
		return repositories.ErrUserNotFound
	})
	return found, err
}

func (r userRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	var users []*models.User
	err := r.s.with(func(d *data) error {
		for _, id := range ids {
			if u, ok := d.users[id]; ok {
				cp := u
				users = append(users, &cp)
			}
		}
		return nil
	})
	return users, err
}

func (r userRepository) UpdateTransactionPin(ctx context.Context, id uuid.UUID, hash string) error {
	return r.s.with(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return repositories.ErrUserNotFound
		}
		u.TransactionPin = hash
		u.UpdatedAt = time.Now().UTC()
		d.users[id] = u
		return nil
	})
}

type accountRepository struct{ s *Store }

func (r accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.s.with(func(d *data) error {
		key := accountKey{account.UserID, account.Currency}
		if _, exists := d.accounts[key]; exists {
			return repositories.ErrDuplicateKey
		}
		if account.ID == uuid.Nil {
			account.ID = uuid.New()
		}
		account.Balance = decimal.Zero
		now := time.Now().UTC()
		account.CreatedAt, account.UpdatedAt = now, now
		d.accounts[key] = *account
		return nil
	})
}

func (r accountRepository) Get(ctx context.Context, userID uuid.UUID, currency models.Currency) (*models.Account, error) {
	var found *models.Account
	err := r.s.with(func(d *data) error {
		a, ok := d.accounts[accountKey{userID, currency}]
		if !ok {
			return repositories.ErrAccountNotFound
		}
		found = &a
		return nil
	})
	return found, err
}

// GetForUpdate is Get: a unit already holds the store exclusively.
func (r accountRepository) GetForUpdate(ctx context.Context, userID uuid.UUID, currency models.Currency) (*models.Account, error) {
	return r.Get(ctx, userID, currency)
}

func (r accountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.s.with(func(d *data) error {
		for key, a := range d.accounts {
			if key.userID == userID {
				cp := a
				accounts = append(accounts, &cp)
			}
		}
		return nil
	})
	sort.Slice(accounts, func(i, j int) bool {
		return currencyIndex(accounts[i].Currency) < currencyIndex(accounts[j].Currency)
	})
	return accounts, err
}

func currencyIndex(c models.Currency) int {
	for i, s := range models.SupportedCurrencies() {
		if s == c {
			return i
		}
	}
	return len(models.SupportedCurrencies())
}

func (r accountRepository) AdjustBalance(ctx context.Context, userID uuid.UUID, currency models.Currency, delta decimal.Decimal) (*models.Account, error) {
	var updated *models.Account
	err := r.s.with(func(d *data) error {
		key := accountKey{userID, currency}
		a, ok := d.accounts[key]
		if !ok {
			return repositories.ErrAccountNotFound
		}
		next := a.Balance.Add(delta)
		if next.IsNegative() {
			return repositories.ErrNegativeBalance
		}
		a.Balance = next
		a.UpdatedAt = time.Now().UTC()
		d.accounts[key] = a
		updated = &a
		return nil
	})
	return updated, err
}

func (r accountRepository) CountNegativeBalances(ctx context.Context) (int64, error) {
	var count int64
	err := r.s.with(func(d *data) error {
		for _, a := range d.accounts {
			if a.Balance.IsNegative() {
				count++
			}
		}
		return nil
	})
	return count, err
}

type ledgerRepository struct{ s *Store }

// Append inserts all entries or none.
func (r ledgerRepository) Append(ctx context.Context, entries ...*models.LedgerEntry) error {
	return r.s.with(func(d *data) error {
		batch := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			if err := e.Validate(); err != nil {
				return err
			}
			if r.s.shared.appendHook != nil {
				if err := r.s.shared.appendHook(e); err != nil {
					return err
				}
			}
			if _, dup := d.refs[e.Reference]; dup {
				return repositories.ErrDuplicateReference
			}
			if _, dup := batch[e.Reference]; dup {
				return repositories.ErrDuplicateReference
			}
			batch[e.Reference] = struct{}{}
		}
		now := time.Now().UTC()
		for _, e := range entries {
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			e.CreatedAt = now
			d.entries = append(d.entries, *e)
			d.refs[e.Reference] = struct{}{}
		}
		return nil
	})
}

func (r ledgerRepository) GetByReference(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	var found *models.LedgerEntry
	err := r.s.with(func(d *data) error {
		for _, e := range d.entries {
			if e.Reference == reference {
				cp := e
				found = &cp
				return nil
			}
		}
		return repositories.ErrEntryNotFound
	})
	return found, err
}

func (r ledgerRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.s.with(func(d *data) error {
		// Walk backwards so equal dates keep newest-inserted first.
		for i := len(d.entries) - 1; i >= 0; i-- {
			e := d.entries[i]
			if e.Involves(userID) {
				cp := e
				entries = append(entries, &cp)
			}
		}
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, err
}
