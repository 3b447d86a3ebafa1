package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/joao-fontenele/textile-shop/internal/config"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect Postgres schema migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withMigrate(func(m *migrate.Migrate) error {
					err := m.Up()
					if errors.Is(err, migrate.ErrNoChange) {
						c.logger.Info("no pending migrations")
						return nil
					}
					if err != nil {
						return fmt.Errorf("migration up failed: %w", err)
					}
					c.logger.Info("migrations applied successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withMigrate(func(m *migrate.Migrate) error {
					err := m.Steps(-1)
					if errors.Is(err, migrate.ErrNoChange) {
						c.logger.Info("no migrations to rollback")
						return nil
					}
					if err != nil {
						return fmt.Errorf("migration down failed: %w", err)
					}
					c.logger.Info("migration rolled back successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withMigrate(func(m *migrate.Migrate) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						c.logger.Info("no migrations applied yet")
						return nil
					}
					if err != nil {
						return fmt.Errorf("failed to get version: %w", err)
					}
					c.logger.Info("current migration version", "version", version, "dirty", dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

// withMigrate runs fn against the Postgres database. SQLite stores create
// their schema on open and have no migration history.
func (c *cli) withMigrate(fn func(*migrate.Migrate) error) error {
	if c.cfg.StoreDriver != config.StorePostgres {
		return fmt.Errorf("migrations apply to the postgres store only, STORE_DRIVER is %q", c.cfg.StoreDriver)
	}

	m, err := migrate.New(c.cfg.MigrationsPath, c.cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	return fn(m)
}
