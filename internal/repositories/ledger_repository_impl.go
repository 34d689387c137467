package repositories

import (
	"context"
	"errors"

	"stase/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

// Append inserts the entries in one statement. The reference unique index
// turns a collision into ErrDuplicateReference.
func (r *ledgerRepository) Append(ctx context.Context, entries ...*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(entries).Error; err != nil {
		return classify("append ledger entries", err, ErrDuplicateReference)
	}
	return nil
}

func (r *ledgerRepository) GetByReference(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, classify("get ledger entry", err, ErrDuplicateReference)
	}
	return &entry, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("date DESC, created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, classify("list ledger entries", err, ErrDuplicateReference)
	}
	return entries, nil
}
