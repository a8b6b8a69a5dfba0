package mailing

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores mailing-list signups.
type Repository interface {
	// Create fails with domain.ErrAlreadyExists when the email is already listed.
	Create(ctx context.Context, e domain.MailingEntry) (*domain.MailingEntry, error)
}
