package importer

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type stubProductWriter struct {
	items []domain.Product
}

func (s *stubProductWriter) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.items = append(s.items, p)
	return &p, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `key,title,description,category,price,listPrice,variant.id,variant.name,variant.price,image.url
choc-cake,Chocolate Cake,Rich and dark,cakes,1200,1500,,500g,1200,https://example.com/cake.jpg
,,,,,,,1kg,2200,https://example.com/cake-2.jpg
,,,,,,,,,https://example.com/cake-3.jpg
plain-cookie,Plain Cookie,,cookies,300,,,,,`

	repo := &stubProductWriter{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 products imported, got %d", count)
	}
	if len(repo.items) != 2 {
		t.Fatalf("expected 2 products saved, got %d", len(repo.items))
	}

	cake := repo.items[0]
	if cake.Key != "choc-cake" || cake.Title != "Chocolate Cake" || cake.Price != 1200 || cake.ListPrice != 1500 || cake.Category != "cakes" {
		t.Fatalf("unexpected product data: %+v", cake)
	}
	if len(cake.Variants) != 2 || cake.Variants[1].Name != "1kg" || cake.Variants[1].Price != 2200 {
		t.Fatalf("expected two variants on first product, got %+v", cake.Variants)
	}
	if len(cake.Images) != 3 {
		t.Fatalf("expected 3 images on first product, got %v", cake.Images)
	}

	cookie := repo.items[1]
	if len(cookie.Variants) != 1 || cookie.Variants[0].Name != "Default" || cookie.Variants[0].Price != 300 {
		t.Fatalf("expected default variant at product price, got %+v", cookie.Variants)
	}
}

func TestCSVImporter_RejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"bad price": `key,title,price
k1,Thing,12.50`,
		"orphan continuation": `key,title,price,variant.name
,,,500g`,
		"missing title": `key,title,price
k1,,100`,
		"no key column": `title,price
Thing,100`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCSVImporter(strings.NewReader(data), &stubProductWriter{}).Run(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
