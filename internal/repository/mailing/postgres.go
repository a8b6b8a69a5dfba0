package mailing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository/dberr"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository over the mailing_list table.
func NewPostgres(pool *pgxpool.Pool, l *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrDiscard(l)}
}

func (r *postgresRepo) Create(ctx context.Context, e domain.MailingEntry) (*domain.MailingEntry, error) {
	out := e
	out.Email = strings.ToLower(e.Email)
	err := r.pool.QueryRow(ctx, `
INSERT INTO mailing_list (email, name, age)
VALUES ($1, $2, $3)
RETURNING id::text, created_at
`, out.Email, out.Name, out.Age).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		err = dberr.Postgres(err)
		r.logger.Info("mailing repo: create", "email", out.Email, "error", err)
		return nil, err
	}
	return &out, nil
}
