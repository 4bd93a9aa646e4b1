package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-auth-otp/internal/domain"
)

type contextKey string

const PayloadKey contextKey = "token_payload"

// TokenVerifier decodes a signed token into its payload.
type TokenVerifier interface {
	Verify(token string) (*domain.TokenPayload, error)
}

// Auth returns middleware that validates the Bearer JWT and injects its payload into context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			payload, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), PayloadKey, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PayloadFromContext extracts the verified token payload from the request context.
func PayloadFromContext(ctx context.Context) (*domain.TokenPayload, bool) {
	p, ok := ctx.Value(PayloadKey).(*domain.TokenPayload)
	return p, ok
}
