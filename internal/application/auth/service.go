package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/metrics"
	"github.com/go-auth-otp/internal/pkg/id"
	"github.com/go-auth-otp/internal/pkg/validate"
)

// ChallengeResult is returned when a one-time code has been sent.
// OTP is only populated when code echoing is enabled.
type ChallengeResult struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

// AuthResult carries a fresh token pair and the identity it was issued to.
// Exactly one of User and Admin is set.
type AuthResult struct {
	Tokens domain.TokenPair
	User   *domain.User
	Admin  *domain.Admin
}

// Profile is the identity behind a verified access token.
type Profile struct {
	AccountType domain.AccountType `json:"accountType"`
	User        *domain.User       `json:"user,omitempty"`
	Admin       *domain.Admin      `json:"admin,omitempty"`
}

type Service interface {
	InitiateRegistration(ctx context.Context, req domain.RegisterRequest) (*ChallengeResult, error)
	VerifyRegistration(ctx context.Context, req domain.VerifyRegistrationRequest) (*AuthResult, error)
	ResendRegistrationOTP(ctx context.Context, req domain.ResendOTPRequest) (*ChallengeResult, error)
	Login(ctx context.Context, req domain.LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.TokenPair, error)
	AdminLogin(ctx context.Context, req domain.AdminLoginRequest) (*ChallengeResult, error)
	AdminVerifyLogin(ctx context.Context, req domain.VerifyLoginRequest) (*AuthResult, error)
	Me(ctx context.Context, payload domain.TokenPayload) (*Profile, error)
	CreateAdmin(ctx context.Context, req domain.CreateAdminRequest) (*domain.Admin, error)
}

type otpManager interface {
	Generate(ctx context.Context, identity string) (string, error)
	Verify(ctx context.Context, identity, candidate string) (bool, error)
}

type stagingStore interface {
	Stage(ctx context.Context, identity, name, passwordHash string) error
	Fetch(ctx context.Context, identity string) (*domain.PendingRegistration, bool, error)
	Promote(ctx context.Context, identity string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
	NeedsUpgrade(encoded string) bool
}

type tokenIssuer interface {
	IssuePair(subject domain.TokenSubject) (domain.TokenPair, error)
	Verify(token string) (*domain.TokenPayload, error)
}

// IdentityStore persists users and admins. Create methods return domain.ErrDuplicate
// when the email is already held by either kind.
type IdentityStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateAdmin(ctx context.Context, a *domain.Admin) error
	GetAdmin(ctx context.Context, adminID string) (*domain.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

// Mailer delivers OTP emails.
type Mailer interface {
	Send(ctx context.Context, e domain.Email) error
}

type service struct {
	otp        otpManager
	staging    stagingStore
	hasher     passwordHasher
	tokens     tokenIssuer
	identities IdentityStore
	mailer     Mailer
	metrics    *metrics.Metrics
	otpTTL     time.Duration
	exposeOTP  bool
	now        func() time.Time
}

type ServiceDeps struct {
	OTP        otpManager
	Staging    stagingStore
	Hasher     passwordHasher
	Tokens     tokenIssuer
	Identities IdentityStore
	Mailer     Mailer
	Metrics    *metrics.Metrics // optional
	OTPTTL     time.Duration    // only used in email copy
	ExposeOTP  bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		otp:        deps.OTP,
		staging:    deps.Staging,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		identities: deps.Identities,
		mailer:     deps.Mailer,
		metrics:    deps.Metrics,
		otpTTL:     deps.OTPTTL,
		exposeOTP:  deps.ExposeOTP,
		now:        time.Now,
	}
}

func (s *service) InitiateRegistration(ctx context.Context, req domain.RegisterRequest) (*ChallengeResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w: %w", domain.ErrStorage, err)
	}
	if err := s.staging.Stage(ctx, req.Email, req.Name, hash); err != nil {
		return nil, err
	}
	return s.challenge(ctx, req.Email, metrics.PurposeRegistration, "Verify your email")
}

func (s *service) VerifyRegistration(ctx context.Context, req domain.VerifyRegistrationRequest) (*AuthResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	pending, ok, err := s.staging.Fetch(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no pending registration for %s: %w", req.Email, domain.ErrSessionExpired)
	}
	if err := s.checkOTP(ctx, req.Email, req.OTP); err != nil {
		return nil, err
	}

	u := &domain.User{
		UserID:       id.New(),
		Email:        pending.Email,
		Name:         pending.Name,
		PasswordHash: pending.PasswordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.identities.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	// Promotion only runs once the user row exists. If it fails the staged
	// entry simply expires; the account is already usable.
	if err := s.staging.Promote(ctx, req.Email); err != nil {
		slog.Warn("failed to clear staged registration", "email", req.Email, "err", err)
	}
	slog.Info("user registered", "user_id", u.UserID, "email", u.Email)

	pair, err := s.issue(u.UserID, domain.AccountUser)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: pair, User: u}, nil
}

func (s *service) ResendRegistrationOTP(ctx context.Context, req domain.ResendOTPRequest) (*ChallengeResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}
	_, ok, err := s.staging.Fetch(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no pending registration for %s: %w", req.Email, domain.ErrSessionExpired)
	}
	return s.challenge(ctx, req.Email, metrics.PurposeResend, "Verify your email")
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*AuthResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	u, err := s.identities.GetUserByEmail(ctx, req.Email)
	if err != nil {
		s.metrics.LoginAttempt(domain.AccountUser, false)
		return nil, err
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		s.metrics.LoginAttempt(domain.AccountUser, false)
		return nil, fmt.Errorf("login %s: %w", req.Email, domain.ErrInvalidCredentials)
	}
	if s.hasher.NeedsUpgrade(u.PasswordHash) {
		slog.Info("password hash uses outdated parameters", "user_id", u.UserID)
	}
	s.metrics.LoginAttempt(domain.AccountUser, true)

	pair, err := s.issue(u.UserID, domain.AccountUser)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: pair, User: u}, nil
}

// Refresh accepts any unexpired token signed by us and reissues a pair for the
// same subject. Previously issued tokens are not revoked.
func (s *service) Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.TokenPair, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	payload, err := s.tokens.Verify(req.Token)
	if err != nil {
		return nil, err
	}
	if err := s.subjectExists(ctx, *payload); err != nil {
		return nil, err
	}
	pair, err := s.issue(payload.SubjectID, payload.AccountType)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (s *service) AdminLogin(ctx context.Context, req domain.AdminLoginRequest) (*ChallengeResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if _, err := s.identities.GetAdminByEmail(ctx, req.Email); err != nil {
		s.metrics.LoginAttempt(domain.AccountAdmin, false)
		return nil, err
	}
	return s.challenge(ctx, req.Email, metrics.PurposeAdminLogin, "Your sign-in code")
}

func (s *service) AdminVerifyLogin(ctx context.Context, req domain.VerifyLoginRequest) (*AuthResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if err := s.checkOTP(ctx, req.Email, req.OTP); err != nil {
		s.metrics.LoginAttempt(domain.AccountAdmin, false)
		return nil, err
	}
	a, err := s.identities.GetAdminByEmail(ctx, req.Email)
	if err != nil {
		s.metrics.LoginAttempt(domain.AccountAdmin, false)
		return nil, err
	}
	s.metrics.LoginAttempt(domain.AccountAdmin, true)

	pair, err := s.issue(a.AdminID, domain.AccountAdmin)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: pair, Admin: a}, nil
}

func (s *service) Me(ctx context.Context, payload domain.TokenPayload) (*Profile, error) {
	switch payload.AccountType {
	case domain.AccountUser:
		u, err := s.identities.GetUser(ctx, payload.SubjectID)
		if err != nil {
			return nil, err
		}
		return &Profile{AccountType: domain.AccountUser, User: u}, nil
	case domain.AccountAdmin:
		a, err := s.identities.GetAdmin(ctx, payload.SubjectID)
		if err != nil {
			return nil, err
		}
		return &Profile{AccountType: domain.AccountAdmin, Admin: a}, nil
	default:
		return nil, fmt.Errorf("account type %q: %w", payload.AccountType, domain.ErrInvalidToken)
	}
}

func (s *service) CreateAdmin(ctx context.Context, req domain.CreateAdminRequest) (*domain.Admin, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	a := &domain.Admin{
		AdminID:   id.New(),
		Email:     req.Email,
		Name:      req.Name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.identities.CreateAdmin(ctx, a); err != nil {
		return nil, err
	}
	slog.Info("admin created", "admin_id", a.AdminID, "email", a.Email)
	return a, nil
}

// ensureEmailFree rejects an address already held by a user or an admin.
func (s *service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.identities.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("email %s: %w", email, domain.ErrDuplicate)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	_, err = s.identities.GetAdminByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("email %s: %w", email, domain.ErrDuplicate)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return nil
}

func (s *service) subjectExists(ctx context.Context, p domain.TokenPayload) error {
	var err error
	switch p.AccountType {
	case domain.AccountUser:
		_, err = s.identities.GetUser(ctx, p.SubjectID)
	case domain.AccountAdmin:
		_, err = s.identities.GetAdmin(ctx, p.SubjectID)
	default:
		return fmt.Errorf("account type %q: %w", p.AccountType, domain.ErrInvalidToken)
	}
	return err
}

func (s *service) checkOTP(ctx context.Context, email, candidate string) error {
	ok, err := s.otp.Verify(ctx, email, candidate)
	if err != nil {
		return err
	}
	s.metrics.OTPChecked(ok)
	if !ok {
		return fmt.Errorf("otp for %s: %w", email, domain.ErrInvalidOTP)
	}
	return nil
}

// challenge generates a code for email and mails it.
func (s *service) challenge(ctx context.Context, email, purpose, subject string) (*ChallengeResult, error) {
	code, err := s.otp.Generate(ctx, email)
	if err != nil {
		return nil, err
	}
	s.metrics.OTPIssuedFor(purpose)

	text := fmt.Sprintf("Your verification code is %s.", code)
	if s.otpTTL > 0 {
		text = fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.otpTTL)
	}
	if err := s.mailer.Send(ctx, domain.Email{To: email, Subject: subject, Text: text}); err != nil {
		return nil, fmt.Errorf("send otp: %w: %w", domain.ErrDispatch, err)
	}
	slog.Info("otp sent", "email", email, "purpose", purpose)

	res := &ChallengeResult{Message: "verification code sent to " + email}
	if s.exposeOTP {
		res.OTP = code
	}
	return res, nil
}

func (s *service) issue(subjectID string, t domain.AccountType) (domain.TokenPair, error) {
	pair, err := s.tokens.IssuePair(domain.TokenSubject{SubjectID: subjectID, AccountType: t})
	if err != nil {
		return domain.TokenPair{}, err
	}
	s.metrics.TokensIssuedFor(t)
	return pair, nil
}
