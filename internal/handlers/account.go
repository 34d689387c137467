package handlers

import (
	apperrors "stase/internal/errors"
	"stase/internal/services/user"
	"stase/internal/utils"
	"stase/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	users user.Service
}

func NewAccountHandler(users user.Service) *AccountHandler {
	return &AccountHandler{users: users}
}

// UserDetails returns the caller with every account and ledger row.
func (h *AccountHandler) UserDetails(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return response.Error(c, apperrors.ErrUnauthorized)
	}
	snap, err := h.users.Details(c.UserContext(), u)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, fiber.StatusOK, "", nil, fiber.Map{
		"user":         snap.User,
		"bankAccounts": snap.BankAccounts,
		"transactions": snap.Transactions,
	})
}
