// Package seed loads a small demo catalog for manual testing.
package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// Products is the demo catalog. Prices are in minor units.
var Products = []domain.Product{
	{
		Key:         "chocolate-truffle-cake",
		Title:       "Chocolate Truffle Cake",
		Description: "Dark chocolate sponge layered with ganache.",
		Category:    "cakes",
		Price:       59900,
		ListPrice:   69900,
		Images:      []string{"https://images.example.com/cakes/truffle.jpg"},
		Variants: []domain.Variant{
			{Name: "500g", Price: 59900},
			{Name: "1kg", Price: 109900},
		},
	},
	{
		Key:         "red-velvet-cupcakes",
		Title:       "Red Velvet Cupcakes",
		Description: "Cream cheese frosted cupcakes.",
		Category:    "cupcakes",
		Price:       34900,
		ListPrice:   39900,
		Images:      []string{"https://images.example.com/cupcakes/red-velvet.jpg"},
		Variants: []domain.Variant{
			{Name: "Box of 4", Price: 34900},
			{Name: "Box of 6", Price: 49900},
		},
	},
	{
		Key:         "butter-cookies",
		Title:       "Butter Cookies",
		Description: "Classic shortbread, baked daily.",
		Category:    "cookies",
		Price:       19900,
		Images:      []string{"https://images.example.com/cookies/butter.jpg"},
		Variants: []domain.Variant{
			{Name: "250g", Price: 19900},
		},
	},
}

// Apply upserts the demo catalog. It is idempotent: products are keyed.
func Apply(ctx context.Context, w ProductWriter) (int, error) {
	for i, p := range Products {
		p.Variants = append([]domain.Variant(nil), p.Variants...)
		if _, err := w.Upsert(ctx, p); err != nil {
			return i, fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
	}
	return len(Products), nil
}
