package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-auth-otp/internal/domain"
)

// httpError maps domain sentinel errors to HTTP status codes. Infrastructure
// details never reach the client.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidOTP):
		writeError(w, http.StatusBadRequest, "invalid otp")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, domain.ErrDuplicate):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusGone, "registration session expired, please register again")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, domain.ErrDispatch):
		slog.Error("email dispatch failed", "err", err)
		writeError(w, http.StatusBadGateway, "could not send email")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
