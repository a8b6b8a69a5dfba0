package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

// BatchSize is the page size of ListBatch.
const BatchSize = 20

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns the whole catalog, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

// ListBatch returns one page of BatchSize products; pages start at 1.
func (s *Service) ListBatch(ctx context.Context, page int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	list, err := s.repo.ListPage(ctx, (page-1)*BatchSize, BatchSize)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("product %w", domain.ErrNotFound)
	}
	return p, err
}

// Upsert validates and stores p by key. Variants without an id get one
// derived from the product key and variant name, so re-importing the same
// catalog keeps cart lines pointing at the same variants.
func (s *Service) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.Key = strings.TrimSpace(p.Key)
	p.Title = strings.TrimSpace(p.Title)
	if p.Key == "" {
		return nil, fmt.Errorf("%w: product key required", domain.ErrInvalidInput)
	}
	if p.Title == "" {
		return nil, fmt.Errorf("%w: product title required", domain.ErrInvalidInput)
	}
	if p.Price < 0 || p.ListPrice < 0 {
		return nil, fmt.Errorf("%w: prices must not be negative", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == "" {
			v.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(p.Key+"/"+v.Name)).String()
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("%w: duplicate variant id %s", domain.ErrInvalidInput, v.ID)
		}
		seen[v.ID] = true
		if v.Price < 0 {
			return nil, fmt.Errorf("%w: variant %s has a negative price", domain.ErrInvalidInput, v.ID)
		}
	}
	return s.repo.Upsert(ctx, p)
}

func nonNil(list []domain.Product) []domain.Product {
	if list == nil {
		return []domain.Product{}
	}
	return list
}
