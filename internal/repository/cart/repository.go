package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores one cart per user. Every mutation is applied atomically
// by the store and returns the cart as it is after the change. Mutations of
// a (productId, variantId) line that is not in the cart leave it unchanged.
type Repository interface {
	// GetOrCreate returns the user's cart, creating an empty one on first access.
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem increments the quantity of a matching line or appends item.
	AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID, variantID string) (*domain.Cart, error)
	// AdjustQuantity adds delta to a line and drops it once it reaches zero.
	AdjustQuantity(ctx context.Context, userID, productID, variantID string, delta int) (*domain.Cart, error)
	// SetQuantity overwrites a line's quantity; quantity <= 0 drops the line.
	SetQuantity(ctx context.Context, userID, productID, variantID string, quantity int) (*domain.Cart, error)
	// ItemCount sums line quantities without creating a cart.
	ItemCount(ctx context.Context, userID string) (int, error)
}
