package transaction

import (
	"context"
	"sync"
	"testing"

	"stase/internal/logger"
	"stase/internal/models"
	"stase/internal/repositories/memory"
	"stase/internal/services/exchange"
	"stase/internal/services/pin"
	"stase/internal/services/reference"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPin = "1234"

type fixture struct {
	t       *testing.T
	store   *memory.Store
	pins    *pin.Authorizer
	events  *recordingPublisher
	svc     Service
	metrics MetricsCollector
	refs    ReferenceGenerator
	pub     EventPublisher
	config  Config
}

type option func(*fixture)

func withMetrics(m MetricsCollector) option {
	return func(f *fixture) { f.metrics = m }
}

func withReferences(r ReferenceGenerator) option {
	return func(f *fixture) { f.refs = r }
}

func withPublisher(p EventPublisher) option {
	return func(f *fixture) { f.pub = p }
}

func withConfig(c Config) option {
	return func(f *fixture) { f.config = c }
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		t:      t,
		store:  store,
		pins:   pin.NewAuthorizer(store.Users(), bcrypt.MinCost),
		events: &recordingPublisher{},
		refs:   reference.NewGenerator(),
		config: Config{MaxDeposit: DefaultMaxDeposit, MaxRetries: DefaultMaxRetries},
	}
	for _, opt := range opts {
		opt(f)
	}
	var pub EventPublisher = f.events
	if f.pub != nil {
		pub = f.pub
	}
	f.svc = NewService(Deps{
		Store:      store,
		Rates:      exchange.NewDefaultTable(),
		References: f.refs,
		Pins:       f.pins,
		Events:     pub,
		Metrics:    f.metrics,
		Log:        logger.Discard(),
	}, f.config)
	return f
}

// user creates a user with a PIN and one account per currency given.
func (f *fixture) user(username string, currencies ...models.Currency) *models.User {
	f.t.Helper()
	ctx := context.Background()
	u := &models.User{
		ExternalID: "ext-" + username,
		FirstName:  "First" + username,
		LastName:   "Last",
		Username:   username,
		Email:      username + "@example.com",
	}
	require.NoError(f.t, f.store.Users().Create(ctx, u))
	require.NoError(f.t, f.pins.SetSecret(ctx, u.ID, testPin))
	for _, c := range currencies {
		require.NoError(f.t, f.store.Accounts().Create(ctx, &models.Account{UserID: u.ID, Currency: c}))
	}
	u, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) fund(u *models.User, currency models.Currency, amount string) {
	f.t.Helper()
	_, err := f.store.Accounts().AdjustBalance(context.Background(), u.ID, currency, dec(amount))
	require.NoError(f.t, err)
}

func (f *fixture) balance(u *models.User, currency models.Currency) decimal.Decimal {
	f.t.Helper()
	acc, err := f.store.Accounts().Get(context.Background(), u.ID, currency)
	require.NoError(f.t, err)
	return acc.Balance
}

func (f *fixture) entries(u *models.User) []*models.LedgerEntry {
	f.t.Helper()
	entries, err := f.store.Ledger().ListByUser(context.Background(), u.ID)
	require.NoError(f.t, err)
	return entries
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amt(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type recordingPublisher struct {
	mu      sync.Mutex
	entries []*models.LedgerEntry
	err     error
}

func (p *recordingPublisher) PublishCompleted(ctx context.Context, entries ...*models.LedgerEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entries...)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// fixedReferences always returns the same reference per prefix.
type fixedReferences struct{}

func (fixedReferences) Next(prefix string) (string, error) {
	return prefix + "-FIXED", nil
}
