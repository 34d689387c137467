// Package middleware provides HTTP middleware components for the application.
package middleware

import (
	"errors"
	"strings"

	"stase/internal/repositories"
	"stase/internal/utils"
	"stase/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware resolves the bearer credential to a user. With a secret
// configured the credential is an HS256 JWT whose subject is the external
// user id; without one the credential is the external id itself.
type AuthMiddleware struct {
	users  repositories.UserRepository
	secret string
	log    *logrus.Logger
}

func NewAuthMiddleware(users repositories.UserRepository, secret string, log *logrus.Logger) *AuthMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthMiddleware{users: users, secret: secret, log: log}
}

// subject extracts and verifies the credential.
func (m *AuthMiddleware) subject(c *fiber.Ctx) (string, string) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", "invalid authorization format, use: Bearer <token>"
	}
	credential := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if credential == "" {
		return "", "missing token"
	}
	if m.secret == "" {
		return credential, ""
	}

	claims, err := utils.ParseIdentityToken(credential, m.secret)
	if err != nil {
		m.log.WithError(err).WithField("path", c.Path()).Debug("identity token rejected")
		return "", "invalid token"
	}
	return claims.Subject, ""
}

// Subject only requires a valid credential and stores its subject. Used
// by account creation, where no user exists yet.
func (m *AuthMiddleware) Subject(c *fiber.Ctx) error {
	sub, problem := m.subject(c)
	if problem != "" {
		return response.Unauthorized(c, problem)
	}
	c.Locals(utils.LocalSubject, sub)
	return c.Next()
}

// Handler requires a credential that belongs to a registered user.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	sub, problem := m.subject(c)
	if problem != "" {
		return response.Unauthorized(c, problem)
	}

	user, err := m.users.GetByExternalID(c.UserContext(), sub)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return response.Unauthorized(c, "user not found")
		}
		m.log.WithError(err).Error("identity lookup failed")
		return response.Error(c, err)
	}

	c.Locals(utils.LocalSubject, sub)
	c.Locals(utils.LocalUser, user)
	return c.Next()
}
