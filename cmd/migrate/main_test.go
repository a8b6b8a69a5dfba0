package main

import (
	"context"
	"testing"

	"storefront/internal/config"
	"storefront/internal/logger"
)

func TestRunReturnsStoreErrors(t *testing.T) {
	cfg := config.FromEnv()
	cfg.StoreDriver = "bogus"

	if err := run(context.Background(), cfg, logger.Discard(), 0); err == nil {
		t.Fatal("expected an error for an unknown store driver")
	}
}
