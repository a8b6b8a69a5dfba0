package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository/dberr"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by the carts and cart_items tables.
func NewPostgres(pool *pgxpool.Pool, l *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrDiscard(l)}
}

func (r *postgresRepo) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		cart, err = fetchCart(ctx, tx, cartID)
		return err
	})
	if err != nil {
		r.logger.Error("cart repo: get", "user_id", userID, "error", err)
		return nil, dberr.Postgres(err)
	}
	return cart, nil
}

func (r *postgresRepo) AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.Cart, error) {
	if item.Quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityLimit
	}
	return r.mutate(ctx, "add", userID, func(tx pgx.Tx, cartID string) error {
		tag, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, variant_id, quantity, title, price_cents, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (cart_id, product_id, variant_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
WHERE cart_items.quantity + EXCLUDED.quantity <= $8
`, cartID, item.ProductID, item.VariantID, item.Quantity, item.Title, item.Price, item.Image, domain.MaxLineQuantity)
		if err != nil {
			return err
		}
		// the guarded merge skips the row instead of failing
		if tag.RowsAffected() == 0 {
			return domain.ErrQuantityLimit
		}
		return nil
	})
}

func (r *postgresRepo) RemoveItem(ctx context.Context, userID, productID, variantID string) (*domain.Cart, error) {
	return r.mutate(ctx, "remove", userID, func(tx pgx.Tx, cartID string) error {
		_, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3
`, cartID, productID, variantID)
		return err
	})
}

func (r *postgresRepo) AdjustQuantity(ctx context.Context, userID, productID, variantID string, delta int) (*domain.Cart, error) {
	return r.mutate(ctx, "adjust", userID, func(tx pgx.Tx, cartID string) error {
		var current int
		err := tx.QueryRow(ctx, `
SELECT quantity
FROM cart_items
WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3
FOR UPDATE
`, cartID, productID, variantID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		return writeQuantity(ctx, tx, cartID, productID, variantID, current+delta)
	})
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID, productID, variantID string, quantity int) (*domain.Cart, error) {
	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityLimit
	}
	return r.mutate(ctx, "set", userID, func(tx pgx.Tx, cartID string) error {
		return writeQuantity(ctx, tx, cartID, productID, variantID, quantity)
	})
}

func (r *postgresRepo) ItemCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(ci.quantity), 0)::int
FROM carts c
JOIN cart_items ci ON ci.cart_id = c.id
WHERE c.user_id = $1
`, userID).Scan(&count)
	if err != nil {
		r.logger.Error("cart repo: count", "user_id", userID, "error", err)
		return 0, dberr.Postgres(err)
	}
	return count, nil
}

// mutate runs change against the user's cart inside one transaction and
// returns the resulting cart.
func (r *postgresRepo) mutate(ctx context.Context, op, userID string, change func(tx pgx.Tx, cartID string) error) (*domain.Cart, error) {
	var cart *domain.Cart
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := change(tx, cartID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID); err != nil {
			return err
		}
		cart, err = fetchCart(ctx, tx, cartID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			r.logger.Info("cart repo: "+op, "user_id", userID, "error", err)
			return nil, err
		}
		r.logger.Error("cart repo: "+op, "user_id", userID, "error", err)
		return nil, dberr.Postgres(err)
	}
	r.logger.Debug("cart repo: "+op, "user_id", userID, "cart_id", cart.ID, "lines", len(cart.Items))
	return cart, nil
}

func (r *postgresRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func writeQuantity(ctx context.Context, tx pgx.Tx, cartID, productID, variantID string, quantity int) error {
	if quantity <= 0 {
		_, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3
`, cartID, productID, variantID)
		return err
	}
	_, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = $4
WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3
`, cartID, productID, variantID, quantity)
	return err
}

// ensureCart upserts the user's cart row and locks it for the transaction.
func ensureCart(ctx context.Context, q querier, userID string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id::text
`, userID).Scan(&id)
	return id, err
}

func fetchCart(ctx context.Context, q querier, cartID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := q.QueryRow(ctx, `
SELECT id::text, user_id::text, created_at, updated_at
FROM carts
WHERE id = $1
`, cartID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, err
	}

	items, err := fetchItems(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return &cart, nil
}

func fetchItems(ctx context.Context, q querier, cartID string) ([]domain.CartItem, error) {
	rows, err := q.Query(ctx, `
SELECT product_id, variant_id, quantity, title, price_cents, image, added_at
FROM cart_items
WHERE cart_id = $1
ORDER BY added_at ASC, product_id, variant_id
`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity, &it.Title, &it.Price, &it.Image, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// LoadItemsForUpdate locks the user's cart row and returns its id and lines.
// A user without a cart gets an empty id and no error.
func LoadItemsForUpdate(ctx context.Context, tx pgx.Tx, userID string) (string, []domain.CartItem, error) {
	var cartID string
	err := tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	items, err := fetchItems(ctx, tx, cartID)
	return cartID, items, err
}

// Clear empties a cart inside tx.
func Clear(ctx context.Context, tx pgx.Tx, cartID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}
