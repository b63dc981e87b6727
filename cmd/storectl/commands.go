package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/pricing"
)

func newProductsCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog grouped by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := (&catalog.Service{API: a.client()}).List(cmd.Context(), category)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, sec := range page.Sections {
				fmt.Fprintf(tw, "# %s\n", sec.Category)
				for _, p := range sec.Products {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, pricing.Format(p.Price))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "categoria", "", "only this category")
	return cmd
}

func newProductCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client().GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", p.ID, p.Name)
			fmt.Fprintf(out, "categoría: %s\nprecio:    %s\n", p.Category, pricing.Format(p.Price))
			if p.Description != "" {
				fmt.Fprintf(out, "\n%s\n", p.Description)
			}
			return nil
		},
	}
}

func newCartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cart <userId>",
		Short: "Show a user's cart joined with the catalog, with totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := (&cart.Service{API: a.client()}).View(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printView(cmd, v)
		},
	}
}

func printView(cmd *cobra.Command, v cart.View) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, d := range v.Items {
		name := cart.UnavailableLabel
		if d.Product != nil {
			name = d.Product.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", d.ProductID, name, d.Quantity, pricing.Format(d.LineTotal()))
	}
	s := v.Summary
	fmt.Fprintf(tw, "\tunidades\t%d\t\t\n", s.Units)
	fmt.Fprintf(tw, "\tsubtotal\t\t%s\t\n", pricing.Format(s.Subtotal))
	fmt.Fprintf(tw, "\tIVA 19%%\t\t%s\t\n", pricing.Format(s.Tax))
	fmt.Fprintf(tw, "\ttotal\t\t%s\t\n", pricing.Format(s.Total))
	return tw.Flush()
}

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <value>",
		Short: `Parse a price such as "$12.990" or 12990 and show it formatted with IVA`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in any = args[0]
			if n, err := strconv.ParseInt(args[0], 10, 64); err == nil {
				in = n
			}
			pesos, err := pricing.Parse(in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pesos:  %d\n", pesos)
			fmt.Fprintf(out, "precio: %s\n", pricing.Format(pesos))
			fmt.Fprintf(out, "IVA:    %s\n", pricing.Format(pricing.Tax(pesos)))
			fmt.Fprintf(out, "total:  %s\n", pricing.Format(pricing.Total(pesos)))
			return nil
		},
	}
}
