package order

import (
	"context"

	"storefront/internal/domain"
)

// CheckoutRequest drives Repository.Checkout.
type CheckoutRequest struct {
	UserID         string
	IdempotencyKey string
	// Price turns the locked cart lines into order lines.
	Price func(ctx context.Context, items []domain.CartItem) ([]domain.OrderItem, error)
	// Event builds the outbox record for the stored order.
	Event func(o domain.Order) (domain.OutboxEvent, error)
}

// Repository stores immutable orders.
type Repository interface {
	// Checkout converts the user's cart into an order in one transaction:
	// the order insert, the outbox event and emptying the cart commit
	// together or not at all. When IdempotencyKey was already used by the
	// user the stored order is returned with replayed set and nothing else
	// happens. An empty cart yields domain.ErrEmptyCart.
	Checkout(ctx context.Context, req CheckoutRequest) (o *domain.Order, replayed bool, err error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
}
