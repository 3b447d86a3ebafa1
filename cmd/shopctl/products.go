package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joao-fontenele/textile-shop/internal/catalog"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <products.json>",
		Short: "Create the products listed in a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var inputs []catalog.ProductInput
			if err := json.Unmarshal(data, &inputs); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			return c.withStore(cmd.Context(), func(store storage.Store) error {
				svc := catalog.NewService(store)
				for i, in := range inputs {
					p, err := svc.Create(cmd.Context(), in)
					if err != nil {
						return fmt.Errorf("product %d (%s): %w", i, in.Name, err)
					}
					c.logger.Info("product seeded", "product_id", p.ID, "public_id", p.PublicID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", len(inputs))
				return nil
			})
		},
	}
}

func (c *cli) productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect the catalog",
	}

	var productType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List products with their availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(store storage.Store) error {
				products, _, err := catalog.NewService(store).List(cmd.Context(), storage.ProductFilter{
					ProductType: domain.ProductType(productType),
				})
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PUBLIC ID\tTYPE\tNAME\tPRICE\tAVAILABLE")
				for _, p := range products {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.PublicID, p.ProductType, p.Name, p.Price, p.WarehouseAvailability)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&productType, "type", "", "filter by FABRIC or ACCESSORY")

	cmd.AddCommand(list)
	return cmd
}
