// Package store opens the configured backend and builds its repositories.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/migrate"
	cartrepo "storefront/internal/repository/cart"
	mailingrepo "storefront/internal/repository/mailing"
	orderrepo "storefront/internal/repository/order"
	outboxrepo "storefront/internal/repository/outbox"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
)

// Store bundles the repositories of one backend.
type Store struct {
	Driver   string
	Products productrepo.Repository
	Users    userrepo.Repository
	Carts    cartrepo.Repository
	Orders   orderrepo.Repository
	Mailing  mailingrepo.Repository
	Outbox   outboxrepo.Repository

	pool  *pgxpool.Pool
	mongo *mongo.Client
	mdb   *mongo.Database
}

// Open connects to the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return NewPostgres(pool, logger), nil
	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return NewMongo(client.Database(cfg.MongoDatabase), logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewPostgres builds a Store over an open pool.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{
		Driver:   config.DriverPostgres,
		Products: productrepo.NewPostgres(pool, logger),
		Users:    userrepo.NewPostgres(pool, logger),
		Carts:    cartrepo.NewPostgres(pool, logger),
		Orders:   orderrepo.NewPostgres(pool, logger),
		Mailing:  mailingrepo.NewPostgres(pool, logger),
		Outbox:   outboxrepo.NewPostgres(pool, logger),
		pool:     pool,
	}
}

// NewMongo builds a Store over a database handle.
func NewMongo(database *mongo.Database, logger *slog.Logger) *Store {
	return &Store{
		Driver:   config.DriverMongo,
		Products: productrepo.NewMongo(database, logger),
		Users:    userrepo.NewMongo(database, logger),
		Carts:    cartrepo.NewMongo(database, logger),
		Orders:   orderrepo.NewMongo(database, logger),
		Mailing:  mailingrepo.NewMongo(database, logger),
		Outbox:   outboxrepo.NewMongo(database, logger),
		mongo:    database.Client(),
		mdb:      database,
	}
}

// Migrate applies the Postgres schema or creates the Mongo indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if s.pool != nil {
		return migrate.Apply(ctx, s.pool)
	}
	for name, ensure := range map[string]func(context.Context, *mongo.Database) error{
		"products": productrepo.EnsureIndexes,
		"users":    userrepo.EnsureIndexes,
		"carts":    cartrepo.EnsureIndexes,
		"orders":   orderrepo.EnsureIndexes,
		"emails":   mailingrepo.EnsureIndexes,
		"outbox":   outboxrepo.EnsureIndexes,
	} {
		if err := ensure(ctx, s.mdb); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}
	return nil
}

// Rollback reverts Postgres migrations. Mongo has nothing to roll back.
func (s *Store) Rollback(ctx context.Context, steps int) error {
	if s.pool == nil {
		return fmt.Errorf("rollback is only supported for %s", config.DriverPostgres)
	}
	return migrate.Rollback(ctx, s.pool, steps)
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.mongo.Ping(ctx, nil)
}

// Close releases the backend connections.
func (s *Store) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		return nil
	}
	return s.mongo.Disconnect(ctx)
}
