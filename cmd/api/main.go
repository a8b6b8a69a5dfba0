package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	authsvc "storefront/internal/service/auth"
	cartsvc "storefront/internal/service/cart"
	mailingsvc "storefront/internal/service/mailing"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/store"
)

const producerName = "storefront-api"

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(os.Stdout, cfg.AppEnv, cfg.LogLevel).With("cmd", "api")
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

// run owns every resource opened for the process so deferred closes run on
// both clean shutdown and startup failure.
func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store (%s): %w", cfg.StoreDriver, err)
	}
	defer st.Close(context.Background())

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	m := metrics.New()

	authOpts := []authsvc.Option{authsvc.WithLogger(log)}
	orderOpts := []ordersvc.Option{ordersvc.WithLogger(log), ordersvc.WithRecorder(m)}
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		authOpts = append(authOpts, authsvc.WithDenylist(cache.NewTokenDenylist(rdb)))
		orderOpts = append(orderOpts, ordersvc.WithIdempotencyCache(cache.NewCheckoutKeys(rdb)))
	} else {
		log.Warn("REDIS_ADDR not set; logout will not revoke tokens")
	}

	productService := productsvc.New(st.Products)
	authService := authsvc.New(st.Users, []byte(cfg.TokenSecret), cfg.TokenTTL, authOpts...)
	cartService := cartsvc.New(st.Carts, st.Products)
	orderService := ordersvc.New(st.Orders, st.Products, producerName, orderOpts...)
	mailingService := mailingsvc.New(st.Mailing, log)

	srv, err := httpserver.New(cfg.HTTPAddr, log, httpserver.Deps{
		AuthSvc:     authService,
		CartSvc:     cartService,
		OrderSvc:    orderService,
		ProductSvc:  productService,
		MailingSvc:  mailingService,
		Store:       st,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	if len(cfg.KafkaBrokers) > 0 {
		relay := events.NewRelay(st.Outbox, events.NewKafkaWriter(cfg.KafkaBrokers, cfg.OrdersTopic), log).WithRecorder(m)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
		log.Info("outbox relay started", "topic", cfg.OrdersTopic)
	} else {
		log.Warn("KAFKA_BROKERS not set; order events stay in the outbox")
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-serverErr:
		log.Error("server error", "error", runErr)
	}
	// stops the relay before wg.Wait
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	} else {
		log.Info("server stopped")
	}
	return runErr
}
