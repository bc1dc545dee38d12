package app

import (
	"context"
	"fmt"

	"github.com/trowebvideo/backend/internal/config"
	"github.com/trowebvideo/backend/internal/db"
	"github.com/trowebvideo/backend/internal/embed"
	"github.com/trowebvideo/backend/internal/handlers"
	"github.com/trowebvideo/backend/internal/middleware"
	"github.com/trowebvideo/backend/internal/repositories"
	"github.com/trowebvideo/backend/internal/watch"
)

// backend bundles the persistence layer selected by the database URL.
type backend struct {
	name    string
	blocks  handlers.BlockStore
	watches watch.Store
	ping    func(ctx context.Context) error
	close   func()
}

// openBackend connects to SQLite for sqlite:// URLs and to PostgreSQL otherwise.
func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	if path, ok := cfg.SQLitePath(); ok {
		conn, err := db.OpenSQLite(ctx, path)
		if err != nil {
			return backend{}, err
		}
		if err := repositories.EnsureSQLiteSchema(ctx, conn); err != nil {
			conn.Close()
			return backend{}, err
		}
		return backend{
			name:    "sqlite",
			blocks:  repositories.NewSQLiteBlockRepository(conn),
			watches: repositories.NewSQLiteWatchRepository(conn),
			ping:    conn.PingContext,
			close:   func() { conn.Close() },
		}, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return backend{}, err
	}
	return backend{
		name:    "postgres",
		blocks:  repositories.NewPostgresBlockRepository(pool),
		watches: repositories.NewPostgresWatchRepository(pool),
		ping:    pool.Ping,
		close:   pool.Close,
	}, nil
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(store backend, cfg config.Config) (handlers.Dependencies, error) {
	registry, err := embed.BuildRegistry(cfg.ProvidersFile)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("build provider registry: %w", err)
	}

	return handlers.Dependencies{
		Blocks:      store.blocks,
		Resolver:    embed.NewResolver(registry, nil, cfg.EmbedTimeout),
		Watches:     watch.NewTracker(store.watches),
		Providers:   registry,
		ViewLimiter: middleware.NewIPRateLimiter(cfg.ViewRate.Requests, cfg.ViewRate.Window, cfg.ViewRate.Burst, 0),
		Storage:     store.name,
		StoragePing: store.ping,
	}, nil
}
