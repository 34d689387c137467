// Package response writes the JSON envelope shared by every endpoint:
// {"success", "message", "error", "details", "data", ...extra}.
package response

import (
	"stase/internal/config"
	apperrors "stase/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Success writes a success envelope. extra is merged into the top level,
// which is how operation responses carry the account snapshot.
func Success(c *fiber.Ctx, status int, message string, data interface{}, extra fiber.Map) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	for k, v := range extra {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}
	return c.Status(status).JSON(body)
}

func OK(c *fiber.Ctx, message string, data interface{}) error {
	return Success(c, fiber.StatusOK, message, data, nil)
}

// Error maps err to its status and writes a failure envelope. Internal
// failures are logged and their cause is hidden in production.
func Error(c *fiber.Ctx, err error) error {
	de := apperrors.As(err)
	status := de.Kind.Status()

	body := fiber.Map{
		"success": false,
		"error":   de.Message,
		"code":    de.Code,
	}
	if len(de.Details) > 0 {
		body["details"] = de.Details
	}

	if de.Kind == apperrors.KindInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
		if config.IsProduction() {
			body["error"] = "Internal server error"
			delete(body, "details")
		} else if de.Err != nil {
			body["details"] = fiber.Map{"cause": de.Err.Error()}
		}
	}
	return c.Status(status).JSON(body)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, apperrors.ErrMissingFields.WithMessage(message))
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, apperrors.ErrUnauthorized.WithMessage(message))
}
