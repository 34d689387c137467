package handlers

import (
	"context"

	apperrors "stase/internal/errors"
	"stase/internal/models"
	"stase/internal/services/user"
	"stase/internal/utils"
	"stase/internal/utils/response"
	"stase/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PinService manages transaction PINs.
type PinService interface {
	SetSecret(ctx context.Context, userID uuid.UUID, rawPin string) error
	HasSecret(user *models.User) bool
	Authorize(user *models.User, rawPin string) error
}

type AuthHandler struct {
	users user.Service
	pins  PinService
	log   *logrus.Logger
}

func NewAuthHandler(users user.Service, pins PinService, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{users: users, pins: pins, log: log}
}

// CreateAccount registers the identity subject on the request as a user.
func (h *AuthHandler) CreateAccount(c *fiber.Ctx) error {
	var in models.CreateUserInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	snap, err := h.users.Register(c.UserContext(), utils.Subject(c), &in)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, fiber.StatusCreated, "Account created successfully", nil, fiber.Map{
		"user":         snap.User,
		"bankAccounts": snap.BankAccounts,
		"transactions": snap.Transactions,
	})
}

func (h *AuthHandler) CheckUser(c *fiber.Ctx) error {
	var in struct {
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	found, err := h.users.LookupUser(c.UserContext(), in.Email, in.Username)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "User found successfully", found)
}

type pinInput struct {
	Pin string `json:"pin"`
}

func (h *AuthHandler) CreateTransactionPin(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return response.Error(c, apperrors.ErrUnauthorized)
	}
	var in pinInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.Pin == "" {
		return response.Error(c, apperrors.ErrMissingFields.WithDetails(map[string]interface{}{"pin": "is required"}))
	}
	if err := h.pins.SetSecret(c.UserContext(), u.ID, in.Pin); err != nil {
		return response.Error(c, err)
	}

	h.log.WithField("user_id", u.ID).Info("transaction pin updated")
	return response.Success(c, fiber.StatusOK, "Transaction PIN updated successfully", nil, fiber.Map{
		"user": fiber.Map{
			"id":        u.ID,
			"firstName": u.FirstName,
			"lastName":  u.LastName,
			"username":  u.Username,
			"email":     u.Email,
		},
	})
}

func (h *AuthHandler) CheckTransactionPin(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return response.Error(c, apperrors.ErrUnauthorized)
	}
	return response.Success(c, fiber.StatusOK, "", nil, fiber.Map{
		"hasTransactionPin": h.pins.HasSecret(u),
	})
}

func (h *AuthHandler) ValidateTransactionPin(c *fiber.Ctx) error {
	u, err := utils.CurrentUser(c)
	if err != nil {
		return response.Error(c, apperrors.ErrUnauthorized)
	}
	var in pinInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	v := validation.New()
	v.Pin("pin", in.Pin)
	if err := v.Err(apperrors.ErrInvalidPinFormat); err != nil {
		return response.Error(c, err)
	}
	if err := h.pins.Authorize(u, in.Pin); err != nil {
		h.log.WithField("user_id", u.ID).Warn("transaction pin rejected")
		return response.Error(c, err)
	}
	return response.OK(c, "Transaction PIN is valid", fiber.Map{"valid": true})
}
