package http

import (
	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/metrics"
	"github.com/go-auth-otp/internal/transport/http/middleware"
)

// Deps holds everything the router needs. Metrics is optional; without it
// /metrics is not mounted.
type Deps struct {
	AuthService auth.Service
	Tokens      middleware.TokenVerifier
	Metrics     *metrics.Metrics
}
