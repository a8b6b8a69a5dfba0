package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
)

type stubRepo struct {
	items      []domain.Product
	lastOffset int
	lastLimit  int
	upserted   *domain.Product
}

func (s *stubRepo) List(context.Context) ([]domain.Product, error) { return s.items, nil }

func (s *stubRepo) ListPage(_ context.Context, offset, limit int) ([]domain.Product, error) {
	s.lastOffset, s.lastLimit = offset, limit
	if offset >= len(s.items) {
		return nil, nil
	}
	end := min(offset+limit, len(s.items))
	return s.items[offset:end], nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range s.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) GetByIDs(context.Context, []string) (map[string]domain.Product, error) {
	return nil, nil
}

func (s *stubRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.upserted = &p
	return &p, nil
}

func TestListBatch_Paging(t *testing.T) {
	repo := &stubRepo{}
	for i := 0; i < 45; i++ {
		repo.items = append(repo.items, domain.Product{ID: string(rune('a' + i))})
	}
	svc := New(repo)

	page, err := svc.ListBatch(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, page, 5)
	assert.Equal(t, 40, repo.lastOffset)
	assert.Equal(t, BatchSize, repo.lastLimit)

	_, err = svc.ListBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.lastOffset)

	empty, err := svc.ListBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestList_EmptyCatalog(t *testing.T) {
	list, err := New(&stubRepo{}).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
}

func TestGet_NotFound(t *testing.T) {
	_, err := New(&stubRepo{}).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsert_AssignsVariantIDs(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo)

	_, err := svc.Upsert(context.Background(), domain.Product{
		Key:      " brownie ",
		Title:    "Brownie",
		Price:    500,
		Variants: []domain.Variant{{Name: "Small", Price: 500}, {ID: "v-large", Name: "Large", Price: 900}},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.upserted)
	assert.Equal(t, "brownie", repo.upserted.Key)
	assert.NotEmpty(t, repo.upserted.Variants[0].ID)
	first := repo.upserted.Variants[0].ID
	_, err = svc.Upsert(context.Background(), domain.Product{
		Key: "brownie", Title: "Brownie", Variants: []domain.Variant{{Name: "Small", Price: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, first, repo.upserted.Variants[0].ID, "derived ids are stable across imports")
	assert.Equal(t, "v-large", repo.upserted.Variants[1].ID)
}

func TestUpsert_Validation(t *testing.T) {
	svc := New(&stubRepo{})
	cases := map[string]domain.Product{
		"no key":        {Title: "x"},
		"no title":      {Key: "x"},
		"negative":      {Key: "x", Title: "x", Price: -1},
		"duplicate ids": {Key: "x", Title: "x", Variants: []domain.Variant{{ID: "a"}, {ID: "a"}}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), p)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
