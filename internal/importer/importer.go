package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and upserts products by key.
//
// A row with a key starts a product. Following rows with an empty key add
// variants and images to it. Prices are in minor units.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductWriter
}

func NewCSVImporter(r io.Reader, products ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:   csvr,
		products: products,
	}
}

// Run parses CSV rows and upserts products grouped by product key.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["key"]; !ok {
		return 0, errors.New("read headers: missing key column")
	}

	var (
		current  *domain.Product
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		row, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if row == nil {
			continue
		}

		if row.product.Key != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			p := row.product
			current = &p
			current.Variants = append(current.Variants, row.variants...)
			current.Images = append(current.Images, row.images...)
			continue
		}

		if current == nil {
			return imported, fmt.Errorf("line %d: continuation row before any product", line)
		}
		current.Variants = append(current.Variants, row.variants...)
		current.Images = append(current.Images, row.images...)
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, p *domain.Product) error {
	if p.Title == "" || p.Price <= 0 {
		return fmt.Errorf("invalid product row (missing required fields) for key %q", p.Key)
	}
	if len(p.Variants) == 0 {
		p.Variants = []domain.Variant{{Name: "Default", Price: p.Price}}
	}
	for j := range p.Variants {
		if p.Variants[j].Price == 0 {
			p.Variants[j].Price = p.Price
		}
	}
	if _, err := i.products.Upsert(ctx, *p); err != nil {
		return fmt.Errorf("upsert product %q: %w", p.Key, err)
	}
	return nil
}

type csvRow struct {
	product  domain.Product
	variants []domain.Variant
	images   []string
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*csvRow, error) {
	key := pick(record, index, "key")
	variantName := pick(record, index, "variant.name")
	imageURL := pick(record, index, "image.url")

	if key == "" && variantName == "" && imageURL == "" {
		return nil, nil
	}

	row := &csvRow{}
	if key != "" {
		price, err := cents(pick(record, index, "price"))
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		listPrice, err := cents(pick(record, index, "listPrice"))
		if err != nil {
			return nil, fmt.Errorf("listPrice: %w", err)
		}
		row.product = domain.Product{
			ID:          pick(record, index, "id"),
			Key:         key,
			Title:       pick(record, index, "title"),
			Description: pick(record, index, "description"),
			Category:    pick(record, index, "category"),
			Price:       price,
			ListPrice:   listPrice,
		}
	}

	if variantName != "" {
		vp, err := cents(pick(record, index, "variant.price"))
		if err != nil {
			return nil, fmt.Errorf("variant.price: %w", err)
		}
		row.variants = []domain.Variant{{
			ID:    pick(record, index, "variant.id"),
			Name:  variantName,
			Price: vp,
		}}
	}
	if imageURL != "" {
		row.images = []string{imageURL}
	}
	return row, nil
}

func cents(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
