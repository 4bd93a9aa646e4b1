package middleware

import (
	"net/http"

	"github.com/go-auth-otp/internal/domain"
)

// RequireAccountType allows access only to tokens whose account type matches
// one of allowed.
func RequireAccountType(allowed ...domain.AccountType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, ok := PayloadFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, t := range allowed {
				if payload.AccountType == t {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, "forbidden")
		})
	}
}
