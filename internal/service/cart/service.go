package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// Service implements the cart operations of an authenticated user. All
// mutations are delegated to atomic repository operations.
type Service struct {
	repo     cartrepo.Repository
	products productRepo
}

func New(repo cartrepo.Repository, products productRepo) *Service {
	return &Service{repo: repo, products: products}
}

// ItemInput identifies a cart line and an amount.
type ItemInput struct {
	ProductID string
	VariantID string
	Quantity  int
}

// AddItem adds quantity units of a product variant, merging with an
// existing line for the same pair. A merge that would take the line past
// domain.MaxLineQuantity fails with domain.ErrQuantityLimit.
func (s *Service) AddItem(ctx context.Context, userID string, in ItemInput) (*domain.Cart, error) {
	if err := validateLine(in); err != nil {
		return nil, err
	}
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %w", domain.ErrNotFound)
		}
		return nil, err
	}
	v, ok := p.Variant(in.VariantID)
	if !ok {
		return nil, fmt.Errorf("variant %w", domain.ErrNotFound)
	}
	return s.repo.AddItem(ctx, userID, domain.CartItem{
		ProductID: p.ID,
		VariantID: v.ID,
		Quantity:  in.Quantity,
		Title:     p.Title,
		Price:     v.Price,
		Image:     p.FirstImage(),
	})
}

// RemoveItem drops a line; a missing line leaves the cart unchanged.
func (s *Service) RemoveItem(ctx context.Context, userID string, in ItemInput) (*domain.Cart, error) {
	if err := validateLine(in); err != nil {
		return nil, err
	}
	return s.repo.RemoveItem(ctx, userID, in.ProductID, in.VariantID)
}

// ReduceQuantity lowers a line by quantity and removes it at zero. A missing
// line leaves the cart unchanged.
func (s *Service) ReduceQuantity(ctx context.Context, userID string, in ItemInput) (*domain.Cart, error) {
	if err := validateLine(in); err != nil {
		return nil, err
	}
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	return s.repo.AdjustQuantity(ctx, userID, in.ProductID, in.VariantID, -in.Quantity)
}

// SetQuantity overwrites a line's quantity; zero or less removes it. A
// missing line leaves the cart unchanged.
func (s *Service) SetQuantity(ctx context.Context, userID string, in ItemInput) (*domain.Cart, error) {
	if err := validateLine(in); err != nil {
		return nil, err
	}
	if in.Quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityLimit
	}
	return s.repo.SetQuantity(ctx, userID, in.ProductID, in.VariantID, in.Quantity)
}

// GetCart returns the user's cart with every line resolved against the
// live catalog. Lines whose product or variant disappeared keep their
// snapshot values, are flagged unavailable and are left out of Total.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.CartView, error) {
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &domain.CartView{ID: c.ID, UserID: c.UserID, Items: make([]domain.CartItemView, 0, len(c.Items))}
	for _, it := range c.Items {
		line := domain.CartItemView{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		}
		if p, ok := products[it.ProductID]; ok {
			line.Title = p.Title
			line.Image = p.FirstImage()
			if v, ok := p.Variant(it.VariantID); ok {
				line.VariantName = v.Name
				line.Price = v.Price
				line.Available = true
			}
		}
		if line.Available {
			view.Total += line.Price * int64(line.Quantity)
		}
		view.Items = append(view.Items, line)
	}
	return view, nil
}

// ItemCount sums quantities across the user's cart.
func (s *Service) ItemCount(ctx context.Context, userID string) (int, error) {
	return s.repo.ItemCount(ctx, userID)
}

func validateLine(in ItemInput) error {
	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.VariantID) == "" {
		return fmt.Errorf("%w: productId and variantId required", domain.ErrInvalidInput)
	}
	return nil
}

func validateQuantity(q int) error {
	if q < 1 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if q > domain.MaxLineQuantity {
		return domain.ErrQuantityLimit
	}
	return nil
}
