package handlers

import (
	"context"

	"stase/internal/models"
	"stase/internal/services/user"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// snapshotOf returns the user's accounts and ledger rows for merging into
// a response. A failed read never fails a committed operation.
func snapshotOf(ctx context.Context, users user.Service, log *logrus.Logger, u *models.User) fiber.Map {
	snap, err := users.Details(ctx, u)
	if err != nil {
		log.WithError(err).WithField("user_id", u.ID).Warn("failed to load account snapshot")
		return nil
	}
	return fiber.Map{
		"user":         snap.User,
		"bankAccounts": snap.BankAccounts,
		"transactions": snap.Transactions,
	}
}
