package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"furnish-backend/internal/checkout"
	"furnish-backend/internal/env"

	"github.com/spf13/cobra"
)

type shopFlags struct {
	server string
	token  string
	cart   string
}

func defaultCartPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "furnish", "cart.json")
}

func (f *shopFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.server, "server", env.String("FURNISH_SERVER", "http://localhost:5000"), "shop API base URL")
	cmd.PersistentFlags().StringVar(&f.token, "token", env.String("FURNISH_TOKEN", ""), "bearer token of a customer account")
	cmd.PersistentFlags().StringVar(&f.cart, "cart", env.String("FURNISH_CART", defaultCartPath()), "cart file")
}

func (f *shopFlags) openCart() (*checkout.Cart, error) {
	return checkout.NewCart(&checkout.FileStorage{Path: f.cart})
}

func (f *shopFlags) client() *checkout.HTTPClient {
	return checkout.NewHTTPClient(f.server, f.token)
}

func cartCommand() *cobra.Command {
	var shop shopFlags
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "manage the local shopping cart",
	}
	shop.register(cmd)

	add := &cobra.Command{
		Use:   "add <product-slug> [quantity]",
		Short: "add a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n <= 0 {
					return fmt.Errorf("quantity must be a positive number, got %q", args[1])
				}
				qty = n
			}
			cart, err := shop.openCart()
			if err != nil {
				return err
			}
			line, err := shop.client().ProductLine(cmd.Context(), args[0], qty)
			if err != nil {
				return err
			}
			if err := cart.Add(line); err != nil {
				return err
			}
			return printCart(cmd, cart)
		},
	}
	set := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "change a line quantity, 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			cart, err := shop.openCart()
			if err != nil {
				return err
			}
			if err := cart.SetQuantity(uint(id), qty); err != nil {
				return err
			}
			return printCart(cmd, cart)
		},
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := shop.openCart()
			if err != nil {
				return err
			}
			return printCart(cmd, cart)
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := shop.openCart()
			if err != nil {
				return err
			}
			return cart.Clear()
		},
	}
	cmd.AddCommand(add, set, show, clearCmd)
	return cmd
}

func printCart(cmd *cobra.Command, cart *checkout.Cart) error {
	out := cmd.OutOrStdout()
	if cart.Empty() {
		_, err := fmt.Fprintln(out, "cart is empty")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tPRICE")
	for _, l := range cart.Lines() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", l.ProductID, l.Name, l.Quantity, l.Price.StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\tSUBTOTAL\t%s\n", cart.Subtotal().StringFixed(2))
	fmt.Fprintf(tw, "\t\tWEIGHT KG\t%s\n", cart.WeightKg().String())
	return tw.Flush()
}
