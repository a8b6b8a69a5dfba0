package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository/dberr"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, l *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrDiscard(l)}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (username, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id::text, username, email, password_hash, created_at
`
	created, err := r.scan(r.pool.QueryRow(ctx, q, u.Username, strings.ToLower(u.Email), u.PasswordHash))
	if err != nil {
		err = dberr.Postgres(err)
		if errors.Is(err, domain.ErrAlreadyExists) {
			r.logger.Info("user repo: create duplicate", "username", u.Username)
		} else {
			r.logger.Error("user repo: create", "username", u.Username, "error", err)
		}
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
SELECT id::text, username, email, password_hash, created_at
FROM users
WHERE lower(email) = lower($1)
`
	u, err := r.scan(r.pool.QueryRow(ctx, q, email))
	return u, dberr.Postgres(err)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `
SELECT id::text, username, email, password_hash, created_at
FROM users
WHERE id = $1
`
	u, err := r.scan(r.pool.QueryRow(ctx, q, id))
	return u, dberr.Postgres(err)
}

func (r *postgresRepo) scan(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
