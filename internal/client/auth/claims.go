package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims mirrors the public part of the server access token
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// peekClaims reads the access token payload without verifying the signature.
// Клиент не знает секрет, данные используются только для отображения.
func peekClaims(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("malformed access token: %w", err)
	}
	return claims, nil
}
