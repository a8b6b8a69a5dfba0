package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/testdb"
)

// forEachBackend hands fn a repository and a user id valid for it.
func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository, userID string)) {
	t.Run("postgres", func(t *testing.T) {
		pool := testdb.Postgres(t)
		fn(t, NewPostgres(pool, nil), testdb.CreateUser(t, pool, "cart-user"))
	})
	t.Run("mongo", func(t *testing.T) {
		db := testdb.Mongo(t)
		if err := EnsureIndexes(context.Background(), db); err != nil {
			t.Fatalf("ensure indexes: %v", err)
		}
		fn(t, NewMongo(db, nil), "65f000000000000000000001")
	})
}

func line(productID, variantID string, qty int) domain.CartItem {
	return domain.CartItem{ProductID: productID, VariantID: variantID, Quantity: qty, Title: "Cake", Price: 1200}
}

func quantityOf(c *domain.Cart, productID, variantID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID && it.VariantID == variantID {
			return it.Quantity
		}
	}
	return 0
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository, userID string) {
		ctx := context.Background()
		first, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		second, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			t.Fatalf("GetOrCreate again: %v", err)
		}
		if first.ID != second.ID || len(second.Items) != 0 {
			t.Fatalf("expected one empty cart, got %+v and %+v", first, second)
		}
	})
}

func TestLineOperations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository, userID string) {
		ctx := context.Background()

		if n, err := repo.ItemCount(ctx, userID); err != nil || n != 0 {
			t.Fatalf("ItemCount before cart: %d, %v", n, err)
		}

		if _, err := repo.AddItem(ctx, userID, line("p1", "v1", 2)); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		c, err := repo.AddItem(ctx, userID, line("p1", "v1", 3))
		if err != nil {
			t.Fatalf("AddItem again: %v", err)
		}
		if len(c.Items) != 1 || quantityOf(c, "p1", "v1") != 5 {
			t.Fatalf("expected merged line of 5, got %+v", c.Items)
		}
		if c.Items[0].Title != "Cake" || c.Items[0].Price != 1200 {
			t.Fatalf("snapshot not stored: %+v", c.Items[0])
		}

		c, err = repo.AddItem(ctx, userID, line("p1", "v2", 1))
		if err != nil {
			t.Fatalf("AddItem second variant: %v", err)
		}
		if len(c.Items) != 2 {
			t.Fatalf("expected two lines, got %+v", c.Items)
		}

		c, err = repo.AdjustQuantity(ctx, userID, "p1", "v1", -2)
		if err != nil || quantityOf(c, "p1", "v1") != 3 {
			t.Fatalf("AdjustQuantity: %+v, %v", c, err)
		}
		c, err = repo.AdjustQuantity(ctx, userID, "p1", "v1", -10)
		if err != nil || quantityOf(c, "p1", "v1") != 0 || len(c.Items) != 1 {
			t.Fatalf("AdjustQuantity to zero should drop the line: %+v, %v", c, err)
		}
		c, err = repo.AdjustQuantity(ctx, userID, "p9", "v9", -1)
		if err != nil || len(c.Items) != 1 {
			t.Fatalf("AdjustQuantity on missing line should be a no-op: %+v, %v", c, err)
		}

		c, err = repo.SetQuantity(ctx, userID, "p1", "v2", 7)
		if err != nil || quantityOf(c, "p1", "v2") != 7 {
			t.Fatalf("SetQuantity: %+v, %v", c, err)
		}
		c, err = repo.SetQuantity(ctx, userID, "p9", "v9", 4)
		if err != nil || len(c.Items) != 1 {
			t.Fatalf("SetQuantity on missing line should be a no-op: %+v, %v", c, err)
		}
		if n, err := repo.ItemCount(ctx, userID); err != nil || n != 7 {
			t.Fatalf("ItemCount: %d, %v", n, err)
		}

		c, err = repo.RemoveItem(ctx, userID, "p1", "v2")
		if err != nil || len(c.Items) != 0 {
			t.Fatalf("RemoveItem: %+v, %v", c, err)
		}
	})
}

func TestQuantityCap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository, userID string) {
		ctx := context.Background()

		if _, err := repo.AddItem(ctx, userID, line("p1", "v1", domain.MaxLineQuantity+1)); !errors.Is(err, domain.ErrQuantityLimit) {
			t.Fatalf("AddItem over cap: expected ErrQuantityLimit, got %v", err)
		}
		if _, err := repo.AddItem(ctx, userID, line("p1", "v1", domain.MaxLineQuantity-1)); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		c, err := repo.AddItem(ctx, userID, line("p1", "v1", 1))
		if err != nil {
			t.Fatalf("AddItem up to cap: %v", err)
		}
		if q := quantityOf(c, "p1", "v1"); q != domain.MaxLineQuantity {
			t.Fatalf("expected %d, got %d", domain.MaxLineQuantity, q)
		}

		_, err = repo.AddItem(ctx, userID, line("p1", "v1", 1))
		if !errors.Is(err, domain.ErrQuantityLimit) || !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("merge past cap: expected ErrQuantityLimit, got %v", err)
		}
		if _, err := repo.SetQuantity(ctx, userID, "p1", "v1", domain.MaxLineQuantity+1); !errors.Is(err, domain.ErrQuantityLimit) {
			t.Fatalf("SetQuantity over cap: expected ErrQuantityLimit, got %v", err)
		}

		c, err = repo.GetOrCreate(ctx, userID)
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		if q := quantityOf(c, "p1", "v1"); q != domain.MaxLineQuantity {
			t.Fatalf("rejected changes must leave the line at %d, got %d", domain.MaxLineQuantity, q)
		}

		// other lines are unaffected by a capped one
		c, err = repo.AddItem(ctx, userID, line("p2", "v1", 4))
		if err != nil {
			t.Fatalf("AddItem other line: %v", err)
		}
		if quantityOf(c, "p2", "v1") != 4 {
			t.Fatalf("expected new line of 4, got %+v", c.Items)
		}
	})
}

func TestAddItem_Concurrent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository, userID string) {
		ctx := context.Background()
		const workers = 10

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.AddItem(ctx, userID, line("p1", "v1", 1)); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent AddItem: %v", err)
		}

		n, err := repo.ItemCount(ctx, userID)
		if err != nil {
			t.Fatalf("ItemCount: %v", err)
		}
		if n != workers {
			t.Fatalf("expected %d items after concurrent adds, got %d", workers, n)
		}
	})
}
