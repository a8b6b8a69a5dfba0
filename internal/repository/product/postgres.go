package product

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository/dberr"
)

const selectColumns = `
SELECT id::text, key, title, price_cents, list_price_cents, COALESCE(description, ''),
       images, COALESCE(category, ''), variants, created_at, updated_at
FROM products
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, l *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrDiscard(l)}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, selectColumns+`ORDER BY created_at DESC, id`)
	if err != nil {
		r.logger.Error("product repo: list", "error", err)
		return nil, err
	}
	result, err := r.collect(rows)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("product repo: list", "count", len(result))
	return result, nil
}

func (r *postgresRepo) ListPage(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, selectColumns+`ORDER BY created_at DESC, id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		r.logger.Error("product repo: list page", "offset", offset, "limit", limit, "error", err)
		return nil, err
	}
	return r.collect(rows)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	p, err := r.scan(r.pool.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
	if err != nil {
		err = dberr.Postgres(err)
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("product repo: get", "id", id, "error", err)
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	out := make(map[string]domain.Product, len(valid))
	if len(valid) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, selectColumns+`WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		r.logger.Error("product repo: get many", "count", len(valid), "error", err)
		return nil, err
	}
	list, err := r.collect(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	images, err := json.Marshal(nonNilImages(p.Images))
	if err != nil {
		return nil, err
	}
	variants, err := json.Marshal(nonNilVariants(p.Variants))
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO products (key, title, price_cents, list_price_cents, description, images, category, variants)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6::jsonb, NULLIF($7, ''), $8::jsonb)
ON CONFLICT (key) DO UPDATE SET
    title = EXCLUDED.title,
    price_cents = EXCLUDED.price_cents,
    list_price_cents = EXCLUDED.list_price_cents,
    description = EXCLUDED.description,
    images = EXCLUDED.images,
    category = EXCLUDED.category,
    variants = EXCLUDED.variants,
    updated_at = now()
RETURNING id::text, key, title, price_cents, list_price_cents, COALESCE(description, ''),
          images, COALESCE(category, ''), variants, created_at, updated_at
`
	res, err := r.scan(r.pool.QueryRow(ctx, q,
		p.Key, p.Title, p.Price, p.ListPrice, p.Description, string(images), p.Category, string(variants),
	))
	if err != nil {
		r.logger.Error("product repo: upsert", "key", p.Key, "error", err)
		return nil, dberr.Postgres(err)
	}
	r.logger.Info("product repo: upserted", "key", res.Key, "id", res.ID, "variants", len(res.Variants))
	return res, nil
}

func (r *postgresRepo) collect(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	var result []domain.Product
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("product repo: rows", "error", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) scan(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var images, variants []byte
	if err := row.Scan(&p.ID, &p.Key, &p.Title, &p.Price, &p.ListPrice, &p.Description,
		&images, &p.Category, &variants, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			r.logger.Error("product repo: decode images", "id", p.ID, "error", err)
			return nil, err
		}
	}
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &p.Variants); err != nil {
			r.logger.Error("product repo: decode variants", "id", p.ID, "error", err)
			return nil, err
		}
	}
	p.Images = nonNilImages(p.Images)
	p.Variants = nonNilVariants(p.Variants)
	return &p, nil
}

func nonNilImages(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilVariants(in []domain.Variant) []domain.Variant {
	if in == nil {
		return []domain.Variant{}
	}
	return in
}
