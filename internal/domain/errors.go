package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrStorage            = errors.New("storage failure")
	ErrDispatch           = errors.New("dispatch failure")
)
