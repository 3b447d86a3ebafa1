// Command shopctl administers the shop database: schema migrations, catalog
// seeding and inspection.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joao-fontenele/textile-shop/internal/app"
	"github.com/joao-fontenele/textile-shop/internal/config"
	"github.com/joao-fontenele/textile-shop/internal/storage"
	"github.com/joao-fontenele/textile-shop/internal/telemetry"
)

// openStore is replaced in tests.
var openStore = app.OpenStore

type cli struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Administer the textile shop database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.v)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = telemetry.NewLogger(cfg.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "config file (env CONFIG_FILE)")
	root.PersistentFlags().String("store", "", "store driver: postgres|sqlite|memory (env STORE_DRIVER)")
	root.PersistentFlags().String("log-level", "", "log level (env LOG_LEVEL)")
	_ = c.v.BindPFlag("config_file", root.PersistentFlags().Lookup("config"))
	_ = c.v.BindPFlag("store_driver", root.PersistentFlags().Lookup("store"))
	_ = c.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(c.migrateCmd(), c.seedCmd(), c.productsCmd())
	return root
}

func (c *cli) withStore(ctx context.Context, fn func(storage.Store) error) error {
	store, err := openStore(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
