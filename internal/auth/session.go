// Package auth validates session tokens issued by the identity service
// and the operator key used on manual trigger endpoints.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims the identity service puts in a session
// token. Subject carries the user id.
type SessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Predefined errors for token validation.
var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrSigningMethod  = errors.New("unexpected signing method")
)

// SessionValidator verifies session tokens against the shared signing
// key. This service never issues tokens, it only checks them.
type SessionValidator struct {
	signingKey []byte
}

// NewSessionValidator creates a SessionValidator for the given key.
func NewSessionValidator(signingKey string) *SessionValidator {
	return &SessionValidator{signingKey: []byte(signingKey)}
}

// Validate parses and verifies a session token string. Returns the
// claims if valid, or an error if the token is expired, invalid, or
// malformed.
func (v *SessionValidator) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSigningMethod
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// classifyTokenError maps jwt library errors to domain-specific errors.
func classifyTokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return ErrTokenMalformed
	}
	if errors.Is(err, jwt.ErrSignatureInvalid) {
		return ErrTokenInvalid
	}
	if errors.Is(err, ErrSigningMethod) {
		return ErrSigningMethod
	}
	return fmt.Errorf("validate token: %w", err)
}
