package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-otp/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background work such as rate-limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Tokens)

	// 5 requests/second, burst of 10, on every endpoint that mails a code or checks a secret.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.AuthService)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Route("/auth/user", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/register", authH.Register)
			r.With(sensitiveRL.Limit).Post("/register/verify", authH.VerifyRegistration)
			r.With(sensitiveRL.Limit).Post("/otp", authH.ResendOTP)
			r.With(sensitiveRL.Limit).Post("/login", authH.Login)
			r.Post("/token/refresh", authH.Refresh)
		})

		r.Route("/auth/admin", func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/login", authH.AdminLogin)
			r.Post("/login/verify", authH.AdminVerifyLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(appmiddleware.RequireAccountType(domain.AccountUser)).Get("/user/me", authH.Me)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireAccountType(domain.AccountAdmin))
				r.Get("/admin/me", authH.Me)
			})
		})
	})

	return r
}
