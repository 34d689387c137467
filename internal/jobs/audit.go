package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var ErrNegativeBalances = errors.New("accounts with negative balance found")

// NegativeBalanceCounter is satisfied by repositories.AccountRepository.
type NegativeBalanceCounter interface {
	CountNegativeBalances(ctx context.Context) (int64, error)
}

// BalanceAudit checks that no account balance has gone below zero.
type BalanceAudit struct {
	accounts NegativeBalanceCounter
	log      *logrus.Logger
}

func NewBalanceAudit(accounts NegativeBalanceCounter, log *logrus.Logger) *BalanceAudit {
	return &BalanceAudit{accounts: accounts, log: log}
}

func (a *BalanceAudit) Name() string { return "balance_audit" }

func (a *BalanceAudit) Run(ctx context.Context) error {
	n, err := a.accounts.CountNegativeBalances(ctx)
	if err != nil {
		return fmt.Errorf("count negative balances: %w", err)
	}
	if n > 0 {
		a.log.WithField("accounts", n).Error("negative balances detected")
		return fmt.Errorf("%w: %d", ErrNegativeBalances, n)
	}
	return nil
}
