// Command seedadmin provisions an administrator account. Admins have no
// password; they sign in with a one-time code sent to this email.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/go-auth-otp/internal/app"
	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/logging"
)

func main() {
	email := flag.String("email", "", "admin email address")
	name := flag.String("name", "", "admin display name")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.New(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	identities, closeIdentities, err := app.Identities(ctx, cfg)
	if err != nil {
		slog.Error("open identity store", "error", err)
		os.Exit(1)
	}
	defer closeIdentities()

	svc := auth.NewService(auth.ServiceDeps{Identities: identities})
	admin, err := svc.CreateAdmin(ctx, domain.CreateAdminRequest{Email: *email, Name: *name})
	if err != nil {
		slog.Error("create admin", "email", *email, "error", err)
		closeIdentities()
		os.Exit(1)
	}
	fmt.Println(admin.AdminID)
}
