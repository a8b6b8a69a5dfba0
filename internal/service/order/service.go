package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	orderrepo "storefront/internal/repository/order"
)

const maxIdempotencyKeyLength = 200

type productLookup interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// IdempotencyCache short-circuits checkout replays before touching storage.
type IdempotencyCache interface {
	Lookup(ctx context.Context, userID, key string) (string, error)
	Remember(ctx context.Context, userID, key, orderID string) error
}

// Recorder counts checkout outcomes.
type Recorder interface {
	RecordCheckout(outcome string)
}

type Service struct {
	orders   orderrepo.Repository
	products productLookup
	idem     IdempotencyCache
	recorder Recorder
	producer string
	logger   *slog.Logger
}

type Option func(*Service)

func WithIdempotencyCache(c IdempotencyCache) Option {
	return func(s *Service) { s.idem = c }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New builds the order service. producer names this process in event
// envelopes.
func New(orders orderrepo.Repository, products productLookup, producer string, opts ...Option) *Service {
	s := &Service{orders: orders, products: products, producer: producer}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrDiscard(s.logger)
	return s
}

// Checkout turns the user's cart into an order. A repeated key returns the
// original order with replayed set.
func (s *Service) Checkout(ctx context.Context, userID, key string) (*domain.Order, bool, error) {
	key = strings.TrimSpace(key)
	if len(key) > maxIdempotencyKeyLength {
		return nil, false, fmt.Errorf("%w: idempotency key longer than %d characters", domain.ErrInvalidInput, maxIdempotencyKeyLength)
	}

	if o := s.cachedReplay(ctx, userID, key); o != nil {
		s.record(metrics.OutcomeReplayed)
		return o, true, nil
	}

	o, replayed, err := s.orders.Checkout(ctx, orderrepo.CheckoutRequest{
		UserID:         userID,
		IdempotencyKey: key,
		Price:          s.price,
		Event: func(o domain.Order) (domain.OutboxEvent, error) {
			return events.NewOrderCreated(o, s.producer)
		},
	})
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		s.record(metrics.OutcomeEmpty)
		return nil, false, err
	case err != nil:
		s.record(metrics.OutcomeFailed)
		return nil, false, err
	}

	if replayed {
		s.record(metrics.OutcomeReplayed)
	} else {
		s.record(metrics.OutcomeCreated)
		s.logger.Info("order service: checkout", "user_id", userID, "order_id", o.ID, "total", o.TotalAmount)
	}
	if key != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, userID, key, o.ID); err != nil {
			s.logger.Warn("order service: remember idempotency key", "error", err)
		}
	}
	return o, replayed, nil
}

func (s *Service) cachedReplay(ctx context.Context, userID, key string) *domain.Order {
	if key == "" || s.idem == nil {
		return nil
	}
	orderID, err := s.idem.Lookup(ctx, userID, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("order service: idempotency lookup", "error", err)
		}
		return nil
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil || o.UserID != userID {
		return nil
	}
	return o
}

// price resolves each locked cart line to the live variant price and
// refuses carts whose total would not fit in an int64.
func (s *Service) price(ctx context.Context, items []domain.CartItem) ([]domain.OrderItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var total int64
	lines := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if it.Quantity > domain.MaxLineQuantity {
			return nil, fmt.Errorf("line %s/%s: %w", it.ProductID, it.VariantID, domain.ErrQuantityLimit)
		}
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s %w", it.ProductID, domain.ErrNotFound)
		}
		v, ok := p.Variant(it.VariantID)
		if !ok {
			return nil, fmt.Errorf("variant %s %w", it.VariantID, domain.ErrNotFound)
		}
		if v.Price > 0 && int64(it.Quantity) > (math.MaxInt64-total)/v.Price {
			return nil, fmt.Errorf("%w: order total out of range", domain.ErrInvalidInput)
		}
		total += v.Price * int64(it.Quantity)
		lines = append(lines, domain.OrderItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Title:     p.Title,
			Price:     v.Price,
		})
	}
	return lines, nil
}

// ListByUser returns userID's orders, newest first. Unknown or malformed
// user ids yield an empty list.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []domain.Order{}, nil
	}
	list, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Order{}, nil
		}
		return nil, err
	}
	if list == nil {
		list = []domain.Order{}
	}
	return list, nil
}

// Get returns an order with its products resolved against the catalog.
func (s *Service) Get(ctx context.Context, orderID string) (*domain.OrderView, error) {
	o, err := s.orders.GetByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("order %w", domain.ErrNotFound)
		}
		return nil, err
	}

	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &domain.OrderView{Order: *o, Products: make([]domain.OrderProduct, 0, len(o.Items))}
	for _, it := range o.Items {
		line := domain.OrderProduct{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
		if p, ok := products[it.ProductID]; ok {
			line.Image = p.FirstImage()
			if v, ok := p.Variant(it.VariantID); ok {
				line.VariantName = v.Name
				line.Available = true
			}
		}
		view.Products = append(view.Products, line)
	}
	return view, nil
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordCheckout(outcome)
	}
}
