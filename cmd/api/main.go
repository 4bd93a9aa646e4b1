package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/go-auth-otp/internal/app"
	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/application/registration"
	"github.com/go-auth-otp/internal/config"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	redisinfra "github.com/go-auth-otp/internal/infrastructure/redis"
	"github.com/go-auth-otp/internal/logging"
	"github.com/go-auth-otp/internal/metrics"
	"github.com/go-auth-otp/internal/pkg/password"
	transporthttp "github.com/go-auth-otp/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(logging.New(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisinfra.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	store := redisinfra.NewStore(redisClient)

	identities, closeIdentities, err := app.Identities(ctx, cfg)
	if err != nil {
		return fmt.Errorf("identity store: %w", err)
	}
	defer closeIdentities()

	mailer, err := app.Mailer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	hasher, err := password.NewArgon2(password.Config{
		MemoryKB:    cfg.Argon2.MemoryKB,
		Time:        cfg.Argon2.Time,
		Parallelism: cfg.Argon2.Parallelism,
	})
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	tokens, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	m := metrics.New()
	svc := auth.NewService(auth.ServiceDeps{
		OTP:        otp.NewManager(store, cfg.OTPTTL),
		Staging:    registration.NewStaging(store, cfg.RegistrationTTL),
		Hasher:     hasher,
		Tokens:     tokens,
		Identities: identities,
		Mailer:     mailer,
		Metrics:    m,
		OTPTTL:     cfg.OTPTTL,
		ExposeOTP:  cfg.ExposeOTP,
	})
	if cfg.ExposeOTP {
		slog.Warn("EXPOSE_OTP is enabled; codes are returned in API responses")
	}

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		AuthService: svc,
		Tokens:      tokens,
		Metrics:     m,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"identity_driver", cfg.IdentityDriver, "mail_driver", cfg.MailDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
