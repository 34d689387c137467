package models

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims are the claims the identity provider signs into bearer
// credentials. Subject carries the external user id.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}
