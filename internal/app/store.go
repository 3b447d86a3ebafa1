// Package app wires configuration, storage, telemetry and HTTP routes into
// the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/textile-shop/internal/config"
	"github.com/joao-fontenele/textile-shop/internal/storage"
	"github.com/joao-fontenele/textile-shop/internal/storage/memory"
	"github.com/joao-fontenele/textile-shop/internal/storage/sqlstore"
	"github.com/joao-fontenele/textile-shop/internal/telemetry"
)

// OpenStore opens the backend selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return memory.New(), nil
	}

	dialect, err := sqlstore.DialectByName(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.PostgresURL
	if dialect.Name == sqlstore.SQLite.Name {
		dsn = cfg.SQLitePath
	}

	db, err := telemetry.OpenDB(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.Name, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", dialect.Name, err)
	}

	store, err := sqlstore.New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
