package utils

import (
	"errors"

	"stase/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUser    = "user"
	LocalSubject = "subject"
)

var ErrNoUser = errors.New("user not found in context")

// CurrentUser returns the user the auth middleware attached to c.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(LocalUser).(*models.User)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}

// Subject returns the identity subject attached to c, or "".
func Subject(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalSubject).(string)
	return s
}
