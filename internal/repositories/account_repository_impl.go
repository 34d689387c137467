package repositories

import (
	"context"
	"errors"
	"fmt"

	"stase/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return classify("create account", err, ErrDuplicateKey)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, userID uuid.UUID, currency models.Currency) (*models.Account, error) {
	return r.first(ctx, r.db, userID, currency)
}

func (r *accountRepository) GetForUpdate(ctx context.Context, userID uuid.UUID, currency models.Currency) (*models.Account, error) {
	return r.first(ctx, r.db.Clauses(clause.Locking{Strength: "UPDATE"}), userID, currency)
}

func (r *accountRepository) first(ctx context.Context, db *gorm.DB, userID uuid.UUID, currency models.Currency) (*models.Account, error) {
	var account models.Account
	err := db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, classify("get account", err, ErrDuplicateKey)
	}
	return &account, nil
}

func (r *accountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, classify("list accounts", err, ErrDuplicateKey)
	}
	return accounts, nil
}

func (r *accountRepository) AdjustBalance(ctx context.Context, userID uuid.UUID, currency models.Currency, delta decimal.Decimal) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).
		Model(&account).
		Clauses(clause.Returning{}).
		Where("user_id = ? AND currency = ?", userID, currency).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return nil, classify("adjust balance", result.Error, ErrDuplicateKey)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (r *accountRepository) CountNegativeBalances(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("balance < 0").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count negative balances: %w", err)
	}
	return count, nil
}
