package domain

import "time"

// MaxLineQuantity is the largest quantity a single cart line may hold.
const MaxLineQuantity = 10_000

// Cart is the single mutable cart owned by a user.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem is one (product, variant) line. Title, Price and Image are
// captured when the item is first added.
type CartItem struct {
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId"`
	Quantity  int       `json:"quantity"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	Image     string    `json:"image,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// ItemCount sums the quantities of all lines.
func (c Cart) ItemCount() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

// CartView is a cart resolved against the live catalog.
type CartView struct {
	ID     string         `json:"id"`
	UserID string         `json:"userId"`
	Items  []CartItemView `json:"items"`
	Total  int64          `json:"total"`
}

type CartItemView struct {
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId"`
	Title       string `json:"title"`
	VariantName string `json:"variantName"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	Image       string `json:"image,omitempty"`
	Available   bool   `json:"available"`
}
