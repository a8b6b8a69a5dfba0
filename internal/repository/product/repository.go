package product

import (
	"context"

	"storefront/internal/domain"
)

// Repository reads and writes catalog products.
type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	ListPage(ctx context.Context, offset, limit int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetByIDs returns the products that exist, keyed by id. Unknown or
	// malformed ids are skipped.
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	// Upsert inserts or replaces a product identified by its key.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
