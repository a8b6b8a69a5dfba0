package mailing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/logger"
	mailingrepo "storefront/internal/repository/mailing"
)

type Service struct {
	repo   mailingrepo.Repository
	logger *slog.Logger
}

func New(repo mailingrepo.Repository, l *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger.OrDiscard(l)}
}

// SaveInput carries a newsletter signup.
type SaveInput struct {
	Email string
	Name  string
	Age   *int
}

// Save adds an email to the mailing list.
func (s *Service) Save(ctx context.Context, in SaveInput) (*domain.MailingEntry, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if in.Age != nil && *in.Age < 0 {
		return nil, fmt.Errorf("%w: age must not be negative", domain.ErrInvalidInput)
	}

	entry, err := s.repo.Create(ctx, domain.MailingEntry{
		Email: email,
		Name:  strings.TrimSpace(in.Name),
		Age:   in.Age,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("email %w", domain.ErrAlreadyExists)
		}
		return nil, err
	}
	s.logger.Info("mailing service: saved", "entry_id", entry.ID)
	return entry, nil
}
