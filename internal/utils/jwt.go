package utils

import (
	"errors"
	"fmt"
	"time"

	"stase/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("identity token has no subject")

// SignIdentityToken issues an HS256 identity credential for subject. The
// identity provider normally does this; the server uses it in tests and
// local tooling.
func SignIdentityToken(subject, email, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("identity secret not configured")
	}
	now := time.Now()
	claims := models.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseIdentityToken validates an HS256 identity credential and returns
// its claims. The subject is the user's external id.
func ParseIdentityToken(tokenStr, secret string) (*models.IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &models.IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.IdentityClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
