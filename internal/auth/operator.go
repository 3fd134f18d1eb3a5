package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// HashOperatorKey hashes a plaintext operator key with bcrypt. Used by
// deployment tooling to produce the configured hash.
func HashOperatorKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash operator key: %w", err)
	}
	return string(hash), nil
}

// VerifyOperatorKey checks a plaintext operator key against the
// configured bcrypt hash. Returns nil on match.
func VerifyOperatorKey(hash, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}
