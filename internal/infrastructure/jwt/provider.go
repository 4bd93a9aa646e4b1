package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/token"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields. The jti lives in RegisteredClaims.ID.
type Claims struct {
	SubjectID   string             `json:"id"`
	AccountType domain.AccountType `json:"accountType"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 token pairs with a single shared secret.
type Provider struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewProvider(secret string, accessTTL, refreshTTL time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("jwt ttls must be positive")
	}
	return &Provider{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// IssuePair signs an access and a refresh token that share one fresh jti and
// differ only in expiry.
func (p *Provider) IssuePair(subject domain.TokenSubject) (domain.TokenPair, error) {
	jti := token.NewJTI()
	now := p.now()

	access, err := p.sign(subject, jti, now, p.accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w: %w", domain.ErrStorage, err)
	}
	refresh, err := p.sign(subject, jti, now, p.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w: %w", domain.ErrStorage, err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (p *Provider) sign(subject domain.TokenSubject, jti string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		SubjectID:   subject.SubjectID,
		AccountType: subject.AccountType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Verify checks signature, algorithm and expiry and returns the payload.
// Every failure wraps domain.ErrInvalidToken.
func (p *Provider) Verify(tokenStr string) (*domain.TokenPayload, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrInvalidToken)
	}
	if claims.SubjectID == "" || !claims.AccountType.Valid() {
		return nil, fmt.Errorf("%w: incomplete payload", domain.ErrInvalidToken)
	}
	return &domain.TokenPayload{
		SubjectID:   claims.SubjectID,
		AccountType: claims.AccountType,
		JTI:         claims.ID,
	}, nil
}
