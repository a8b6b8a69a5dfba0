package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/store"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(os.Stdout, cfg.AppEnv, cfg.LogLevel).With("cmd", "migrate")

	if err := run(context.Background(), cfg, log, *down); err != nil {
		log.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, down int) error {
	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(ctx)

	if down > 0 {
		if err := st.Rollback(ctx, down); err != nil {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		log.Info("migrations rolled back", "steps", down)
		return nil
	}

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("migrations applied", "driver", st.Driver)
	return nil
}
