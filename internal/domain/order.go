package domain

import "time"

// Order is an immutable snapshot produced by checkout.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Items          []OrderItem `json:"items"`
	TotalAmount    int64       `json:"totalAmount"`
	IdempotencyKey string      `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type OrderItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
}

// OrderView is an order with each item resolved to its product summary.
type OrderView struct {
	Order
	Products []OrderProduct `json:"products"`
}

type OrderProduct struct {
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId"`
	Title       string `json:"title"`
	VariantName string `json:"variantName,omitempty"`
	Image       string `json:"image,omitempty"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
	Available   bool   `json:"available"`
}

// OrderTotal is Σ price × quantity over the lines.
func OrderTotal(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}
