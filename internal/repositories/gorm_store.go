package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore returns a Store backed by a gorm connection.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository {
	return &userRepository{db: s.db}
}

func (s *gormStore) Accounts() AccountRepository {
	return &accountRepository{db: s.db}
}

func (s *gormStore) Ledger() LedgerRepository {
	return &ledgerRepository{db: s.db}
}

// ExecuteInTransaction runs fn at REPEATABLE READ. Nested calls join the
// enclosing unit.
func (s *gormStore) ExecuteInTransaction(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, inTx: true})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	return classifyUnit(err)
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	return sqlDB.Close()
}
