package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims SessionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func sessionClaims(sub string, exp time.Time) SessionClaims {
	return SessionClaims{
		Name:  "Sam",
		Email: "sam@example.edu",
		Role:  "student",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestValidate_ValidToken(t *testing.T) {
	v := NewSessionValidator(testSigningKey)
	tokenStr := signToken(t, testSigningKey, sessionClaims("u-1", time.Now().Add(time.Hour)))

	claims, err := v.Validate(tokenStr)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u-1" || claims.Email != "sam@example.edu" || claims.Name != "Sam" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidate_Errors(t *testing.T) {
	v := NewSessionValidator(testSigningKey)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "expired",
			token: signToken(t, testSigningKey, sessionClaims("u-1", time.Now().Add(-time.Hour))),
			want:  ErrTokenExpired,
		},
		{
			name:  "wrong key",
			token: signToken(t, "other-key", sessionClaims("u-1", time.Now().Add(time.Hour))),
			want:  ErrTokenInvalid,
		},
		{
			name:  "malformed",
			token: "not-a-token",
			want:  ErrTokenMalformed,
		},
		{
			name:  "missing subject",
			token: signToken(t, testSigningKey, sessionClaims("", time.Now().Add(time.Hour))),
			want:  ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Validate(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Validate error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOperatorKey_RoundTrip(t *testing.T) {
	hash, err := HashOperatorKey("swordfish")
	if err != nil {
		t.Fatalf("HashOperatorKey: %v", err)
	}

	if err := VerifyOperatorKey(hash, "swordfish"); err != nil {
		t.Errorf("correct key rejected: %v", err)
	}
	if err := VerifyOperatorKey(hash, "guppy"); err == nil {
		t.Error("wrong key accepted")
	}
}
