// Package app assembles infrastructure backends selected by configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/infrastructure/dynamo"
	"github.com/go-auth-otp/internal/infrastructure/postgres"
	"github.com/go-auth-otp/internal/infrastructure/smtp"
	"github.com/go-auth-otp/internal/infrastructure/sns"
)

// Identities opens the identity store named by cfg.IdentityDriver. The
// returned func releases any pooled connections.
func Identities(ctx context.Context, cfg *config.Config) (auth.IdentityStore, func(), error) {
	switch cfg.IdentityDriver {
	case config.DriverDynamo:
		awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamo.NewClient(awsCfg, cfg)
		if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
			return nil, nil, fmt.Errorf("bootstrap dynamo tables: %w", err)
		}
		return dynamo.NewIdentityRepo(client, cfg.DynamoTables), func() {}, nil

	case config.DriverPostgres:
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewIdentityRepo(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown identity driver %q", cfg.IdentityDriver)
	}
}

func migrateUp(databaseURL string) error {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			slog.Warn("close migrator", "error", err)
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	if v, dirty, err := m.Version(); err == nil {
		slog.Info("schema migrated", "version", v, "dirty", dirty)
	}
	return nil
}

// Mailer builds the OTP delivery channel named by cfg.MailDriver.
func Mailer(ctx context.Context, cfg *config.Config) (auth.Mailer, error) {
	switch cfg.MailDriver {
	case config.DriverSMTP:
		return smtp.NewMailer(cfg), nil
	case config.DriverSNS:
		return sns.NewPublisher(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.MailDriver)
	}
}
