package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionFromContext retrieves the authenticated session claims from
// the request context. Returns nil if no session is set.
func SessionFromContext(ctx context.Context) *SessionClaims {
	if claims, ok := ctx.Value(sessionKey).(*SessionClaims); ok {
		return claims
	}
	return nil
}

// SessionAuth returns an HTTP middleware that validates Bearer session
// tokens and injects the claims into the request context.
func SessionAuth(validator *SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"authorization header required"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, `{"error":"invalid authorization format, expected Bearer <token>"}`, http.StatusUnauthorized)
				return
			}

			claims, err := validator.Validate(parts[1])
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorAuth returns an HTTP middleware that requires the operator
// key on manual trigger endpoints. The key travels in the
// X-Operator-Key header and is checked against the configured bcrypt
// hash. An empty hash disables the endpoints entirely.
func OperatorAuth(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				http.Error(w, `{"error":"operator endpoints disabled"}`, http.StatusForbidden)
				return
			}

			key := r.Header.Get("X-Operator-Key")
			if key == "" {
				http.Error(w, `{"error":"operator key required"}`, http.StatusUnauthorized)
				return
			}

			if err := VerifyOperatorKey(keyHash, key); err != nil {
				http.Error(w, `{"error":"invalid operator key"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
