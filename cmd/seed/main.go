package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/seed"
	productsvc "storefront/internal/service/product"
	"storefront/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(os.Stdout, cfg.AppEnv, cfg.LogLevel).With("cmd", "seed")

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(ctx)

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	n, err := seed.Apply(ctx, productsvc.New(st.Products))
	if err != nil {
		return fmt.Errorf("seed apply: %w", err)
	}
	log.Info("seed applied", "products", n, "driver", st.Driver)
	return nil
}
