package domain

import (
	"strings"
	"time"
)

// AccountType discriminates user sessions from admin sessions inside a token.
type AccountType string

const (
	AccountUser  AccountType = "user"
	AccountAdmin AccountType = "admin"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountUser || t == AccountAdmin
}

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Name         string    `json:"name" dynamodbav:"name"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}

// Admin authenticates by OTP only and therefore carries no password hash.
type Admin struct {
	AdminID   string    `json:"id" dynamodbav:"admin_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Name      string    `json:"name" dynamodbav:"name"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// IdentityEmail is the lock item that keeps an email unique across users and admins.
type IdentityEmail struct {
	Email       string      `dynamodbav:"email"`
	AccountType AccountType `dynamodbav:"account_type"`
	IdentityID  string      `dynamodbav:"identity_id"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type VerifyRegistrationRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Token string `json:"token" validate:"required"`
}

type AdminLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type CreateAdminRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

// NormalizeEmail trims and lower-cases an address. All ephemeral keys and
// identity records are stored under the normalised form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
