package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Lixing-Zhang/products-api/internal/models"
	"github.com/Lixing-Zhang/products-api/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newSchemaCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the products table if needed and print its columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer a.shutdown()

			if err := a.products.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			columns, err := a.products.DescribeSchema(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Fields of the products table:")
			for _, c := range columns {
				fmt.Fprintf(out, "- %s: %s (nullable: %s)\n", c.ColumnName, c.DataType, c.IsNullable)
			}
			return nil
		},
	}
}

func newProductsCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Run a single product operation against the store",
	}

	cmd.AddCommand(
		newListCmd(open),
		newGetCmd(open),
		newAddCmd(open),
		newUpdateCmd(open),
		newDeleteCmd(open),
		newSeedCmd(open),
	)
	return cmd
}

func newListCmd(open storeOpener) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all products, or those of one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer a.shutdown()

			out := cmd.OutOrStdout()
			if category == "" {
				products, err := a.products.ListProducts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Found products: %d\n", len(products))
				printProducts(out, products)
				return nil
			}

			products, err := a.products.ListByCategory(cmd.Context(), category)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Found products in category %q: %d\n", category, len(products))
			if len(products) == 0 {
				fmt.Fprintln(out, "No products found!")
				return nil
			}
			printProducts(out, products)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list products of this category")
	return cmd
}

func newGetCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := bootstrap(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer a.shutdown()

			out := cmd.OutOrStdout()
			product, err := a.products.GetProduct(cmd.Context(), id)
			if errors.Is(err, repository.ErrProductNotFound) {
				fmt.Fprintf(out, "Product with ID %d was not found!\n", id)
				return nil
			}
			if err != nil {
				return err
			}

			printProducts(out, []models.Product{*product})
			return nil
		},
	}
}

// productFlags binds the writable product fields to command flags
type productFlags struct {
	name        string
	category    string
	price       string
	description string
	brand       string
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name (unique)")
	cmd.Flags().StringVar(&f.category, "category", "", "product category")
	cmd.Flags().StringVar(&f.price, "price", "", "price, e.g. 1299.99")
	cmd.Flags().StringVar(&f.description, "description", "", "optional description")
	cmd.Flags().StringVar(&f.brand, "brand", "", "brand")
	for _, name := range []string{"name", "category", "price", "brand"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f *productFlags) input(cmd *cobra.Command) (models.ProductInput, error) {
	price, err := decimal.NewFromString(f.price)
	if err != nil {
		return models.ProductInput{}, fmt.Errorf("invalid --price %q: %w", f.price, err)
	}

	in := models.ProductInput{
		Name:     f.name,
		Category: f.category,
		Price:    price,
		Brand:    f.brand,
	}
	if cmd.Flags().Changed("description") {
		desc := f.description
		in.Description = &desc
	}
	return in, nil
}

func newAddCmd(open storeOpener) *cobra.Command {
	var flags productFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product unless one with the same name exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}

			a, err := bootstrap(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer a.shutdown()

			out := cmd.OutOrStdout()
			product, err := a.products.CreateProduct(cmd.Context(), in)
			if errors.Is(err, repository.ErrDuplicateProduct) {
				fmt.Fprintf(out, "Product \"%s\" already exist\n", in.Name)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Product added: id=%d name=%s price=%s\n", product.ID, product.Name, product.Price.StringFixed(2))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newUpdateCmd(open storeOpener) *cobra.Command {
	var flags productFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace every field of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := flags.input(cmd)
			if err != nil {
				return err
			}

			a, err := bootstrap(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer a.shutdown()

			out := cmd.OutOrStdout()
			summary, err := a.products.UpdateProduct(cmd.Context(), id, in)
			switch {
			case errors.Is(err, repository.ErrProductNotFound):
				fmt.Fprintf(out, "Product with ID %d was not found!\n", id)
				return nil
			case errors.Is(err, repository.ErrDuplicateProduct):
				fmt.Fprintf(out, "Product \"%s\" already exist\n", in.Name)
				return nil
			case err != nil:
				return err
			}

			fmt.Fprintf(out, "Product was updated: id=%d name=%s price=%s\n", summary.ID, summary.Name, summary.Price.StringFixed(2))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newDeleteCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := bootstrap(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer a.shutdown()

			out := cmd.OutOrStdout()
			deleted, err := a.products.DeleteProduct(cmd.Context(), id)
			if errors.Is(err, repository.ErrProductNotFound) {
				fmt.Fprintf(out, "Product with ID %d was not found!\n", id)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Product was deleted: id=%d name=%s\n", deleted.ID, deleted.Name)
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product ID %q", raw)
	}
	return id, nil
}

func printProducts(out io.Writer, products []models.Product) {
	for _, p := range products {
		fmt.Fprintf(out, "ID: %d | %s | %s | %s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Category)
	}
}

func newSeedCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed SOURCE...",
		Short: "Add products from CSV seed files or URLs, skipping existing names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), open)
			if err != nil {
				return err
			}
			defer a.shutdown()

			if err := a.products.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			res, err := runSeed(cmd.Context(), a, args)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded products: %d added, %d already existed\n", res.Added, res.Skipped)
			return nil
		},
	}
}
