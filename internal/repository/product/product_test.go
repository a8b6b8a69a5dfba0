package product

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/testdb"
)

func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("postgres", func(t *testing.T) {
		fn(t, NewPostgres(testdb.Postgres(t), nil))
	})
	t.Run("mongo", func(t *testing.T) {
		db := testdb.Mongo(t)
		if err := EnsureIndexes(context.Background(), db); err != nil {
			t.Fatalf("ensure indexes: %v", err)
		}
		fn(t, NewMongo(db, nil))
	})
}

func cake(key string) domain.Product {
	return domain.Product{
		Key:       key,
		Title:     "Cake " + key,
		Price:     1200,
		ListPrice: 1500,
		Images:    []string{"a.jpg", "b.jpg"},
		Category:  "cakes",
		Variants: []domain.Variant{
			{ID: "v1", Name: "500g", Price: 1200},
			{ID: "v2", Name: "1kg", Price: 2200},
		},
	}
}

func TestUpsertAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		created, err := repo.Upsert(ctx, cake("p1"))
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if created.ID == "" || created.Key != "p1" {
			t.Fatalf("unexpected product %+v", created)
		}

		got, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Title != "Cake p1" || got.ListPrice != 1500 || len(got.Variants) != 2 || got.Variants[1].Price != 2200 {
			t.Fatalf("unexpected product %+v", got)
		}
		if len(got.Images) != 2 || got.Images[0] != "a.jpg" {
			t.Fatalf("unexpected images %v", got.Images)
		}

		changed := cake("p1")
		changed.Title = "Renamed"
		updated, err := repo.Upsert(ctx, changed)
		if err != nil {
			t.Fatalf("Upsert again: %v", err)
		}
		if updated.ID != created.ID || updated.Title != "Renamed" {
			t.Fatalf("expected in-place update, got %+v", updated)
		}
	})
}

func TestGetByID_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		for _, id := range []string{"not-an-id", "00000000-0000-0000-0000-000000000000", "5f1d7a3b9c1e4a2b3c4d5e6f"} {
			if _, err := repo.GetByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("GetByID(%q): expected not found, got %v", id, err)
			}
		}
	})
}

func TestListAndPages(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		keys := []string{"k1", "k2", "k3"}
		ids := map[string]string{}
		for _, k := range keys {
			p, err := repo.Upsert(ctx, cake(k))
			if err != nil {
				t.Fatalf("Upsert %s: %v", k, err)
			}
			ids[k] = p.ID
		}

		all, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 3 || all[0].Key != "k3" {
			t.Fatalf("expected newest first, got %d products starting with %+v", len(all), all[0])
		}

		page, err := repo.ListPage(ctx, 2, 2)
		if err != nil {
			t.Fatalf("ListPage: %v", err)
		}
		if len(page) != 1 || page[0].Key != "k1" {
			t.Fatalf("unexpected second page %+v", page)
		}

		found, err := repo.GetByIDs(ctx, []string{ids["k1"], ids["k3"], "bogus"})
		if err != nil {
			t.Fatalf("GetByIDs: %v", err)
		}
		if len(found) != 2 || found[ids["k1"]].Key != "k1" {
			t.Fatalf("unexpected lookup %+v", found)
		}
	})
}
