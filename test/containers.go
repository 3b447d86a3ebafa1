package test

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joao-fontenele/textile-shop/internal/app"
	"github.com/joao-fontenele/textile-shop/internal/config"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

// Postgres is a migrated and seeded database running in a container that is
// terminated when the test ends.
type Postgres struct {
	ConnStr string
}

func SetupPostgres(ctx context.Context, t *testing.T) *Postgres {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("textile"),
		postgres.WithUsername("textile"),
		postgres.WithPassword("textile"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	terminateOnCleanup(t, "postgres", container)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pg := &Postgres{ConnStr: connStr}
	if err := pg.Migrate(func(m *migrate.Migrate) error { return m.Up() }); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pg
}

// Migrate runs fn against the repository's migrations directory.
// migrate.ErrNoChange is not an error.
func (p *Postgres) Migrate(fn func(*migrate.Migrate) error) error {
	m, err := migrate.New(migrationsURL(), p.ConnStr)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// OpenStore opens the Postgres-backed store through the same factory the
// binaries use.
func (p *Postgres) OpenStore(ctx context.Context, t *testing.T) storage.Store {
	t.Helper()

	store, err := app.OpenStore(ctx, &config.Config{
		StoreDriver: config.StorePostgres,
		PostgresURL: p.ConnStr,
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func migrationsURL() string {
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Dir(filepath.Dir(filename))
	return "file://" + filepath.Join(root, "migrations")
}

func SetupKafka(ctx context.Context, t *testing.T) []string {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("textile-shop-test"),
	)
	terminateOnCleanup(t, "kafka", container)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	return brokers
}

func terminateOnCleanup(t *testing.T, name string, container testcontainers.Container) {
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate %s container: %v", name, err)
		}
	})
}
