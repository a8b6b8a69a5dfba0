package order

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
	cartrepo "storefront/internal/repository/cart"
	"storefront/internal/repository/dberr"
)

const selectColumns = `
SELECT id::text, user_id::text, items, total_cents, COALESCE(idempotency_key, ''), created_at
FROM orders
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, l *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrDiscard(l)}
}

func (r *postgresRepo) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	cartID, items, err := cartrepo.LoadItemsForUpdate(ctx, tx, req.UserID)
	if err != nil {
		r.logger.Error("order repo: lock cart", "user_id", req.UserID, "error", err)
		return nil, false, dberr.Postgres(err)
	}

	if req.IdempotencyKey != "" {
		existing, err := r.scan(tx.QueryRow(ctx, selectColumns+`WHERE user_id = $1 AND idempotency_key = $2`, req.UserID, req.IdempotencyKey))
		if err == nil {
			r.logger.Info("order repo: checkout replay", "user_id", req.UserID, "order_id", existing.ID)
			return existing, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, dberr.Postgres(err)
		}
	}

	if len(items) == 0 {
		return nil, false, domain.ErrEmptyCart
	}

	lines, err := req.Price(ctx, items)
	if err != nil {
		return nil, false, err
	}
	o := domain.Order{
		UserID:         req.UserID,
		Items:          lines,
		TotalAmount:    domain.OrderTotal(lines),
		IdempotencyKey: req.IdempotencyKey,
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, false, err
	}
	err = tx.QueryRow(ctx, `
INSERT INTO orders (user_id, items, total_cents, idempotency_key)
VALUES ($1, $2::jsonb, $3, NULLIF($4, ''))
RETURNING id::text, created_at
`, o.UserID, string(itemsJSON), o.TotalAmount, o.IdempotencyKey).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		r.logger.Error("order repo: insert", "user_id", req.UserID, "error", err)
		return nil, false, dberr.Postgres(err)
	}

	if req.Event != nil {
		ev, err := req.Event(o)
		if err != nil {
			return nil, false, err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO outbox_events (aggregate_id, event_type, payload)
VALUES ($1, $2, $3::jsonb)
`, ev.AggregateID, ev.EventType, string(ev.Payload)); err != nil {
			r.logger.Error("order repo: outbox insert", "order_id", o.ID, "error", err)
			return nil, false, err
		}
	}

	if err := cartrepo.Clear(ctx, tx, cartID); err != nil {
		r.logger.Error("order repo: clear cart", "cart_id", cartID, "error", err)
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, dberr.Postgres(err)
	}
	r.logger.Info("order repo: checkout", "user_id", o.UserID, "order_id", o.ID, "total", o.TotalAmount, "lines", len(o.Items))
	return &o, false, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []domain.Order{}, nil
	}
	rows, err := r.pool.Query(ctx, selectColumns+`WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		err = dberr.Postgres(err)
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Order{}, nil
		}
		r.logger.Error("order repo: list", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	o, err := r.scan(r.pool.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
	if err != nil {
		return nil, dberr.Postgres(err)
	}
	return o, nil
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	o, err := r.scan(r.pool.QueryRow(ctx, selectColumns+`WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
	if err != nil {
		return nil, dberr.Postgres(err)
	}
	return o, nil
}

func (r *postgresRepo) scan(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var items []byte
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.TotalAmount, &o.IdempotencyKey, &o.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		r.logger.Error("order repo: decode items", "id", o.ID, "error", err)
		return nil, err
	}
	return &o, nil
}
