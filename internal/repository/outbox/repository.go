package outbox

import (
	"context"

	"storefront/internal/domain"
)

// Repository reads pending outbox events for the relay. Events are written
// by the transaction that produced them.
type Repository interface {
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string) error
}
