package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-auth-otp/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the part of pgxpool.Pool the repository uses. pgxmock pools
// satisfy it too.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdentityRepo keeps users and admins in one identities table tagged by
// account_type. The unique index on email makes an address belong to at most
// one identity of either kind.
type IdentityRepo struct {
	db Querier
}

func NewIdentityRepo(db Querier) *IdentityRepo {
	return &IdentityRepo{db: db}
}

const insertIdentity = `INSERT INTO identities (id, account_type, email, name, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const (
	selectUser  = `SELECT id, email, name, COALESCE(password_hash, ''), created_at FROM identities`
	selectAdmin = `SELECT id, email, name, created_at FROM identities`
)

func (r *IdentityRepo) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, insertIdentity,
		u.UserID, string(domain.AccountUser), u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	return insertErr("create user", u.Email, err)
}

func (r *IdentityRepo) CreateAdmin(ctx context.Context, a *domain.Admin) error {
	_, err := r.db.Exec(ctx, insertIdentity,
		a.AdminID, string(domain.AccountAdmin), a.Email, a.Name, nil, a.CreatedAt)
	return insertErr("create admin", a.Email, err)
}

func insertErr(op, email string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s: email %s: %w", op, email, domain.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func (r *IdentityRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return r.user(ctx, "get user", selectUser+` WHERE id = $1 AND account_type = $2`, id)
}

func (r *IdentityRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.user(ctx, "get user by email", selectUser+` WHERE email = $1 AND account_type = $2`, email)
}

func (r *IdentityRepo) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	return r.admin(ctx, "get admin", selectAdmin+` WHERE id = $1 AND account_type = $2`, id)
}

func (r *IdentityRepo) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return r.admin(ctx, "get admin by email", selectAdmin+` WHERE email = $1 AND account_type = $2`, email)
}

func (r *IdentityRepo) user(ctx context.Context, op, query, arg string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg, string(domain.AccountUser)).
		Scan(&u.UserID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, selectErr(op, err)
	}
	return &u, nil
}

func (r *IdentityRepo) admin(ctx context.Context, op, query, arg string) (*domain.Admin, error) {
	var a domain.Admin
	err := r.db.QueryRow(ctx, query, arg, string(domain.AccountAdmin)).
		Scan(&a.AdminID, &a.Email, &a.Name, &a.CreatedAt)
	if err != nil {
		return nil, selectErr(op, err)
	}
	return &a, nil
}

func selectErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
