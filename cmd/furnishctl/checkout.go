package main

import (
	"errors"
	"fmt"

	"furnish-backend/internal/checkout"

	"github.com/spf13/cobra"
)

func checkoutCommand() *cobra.Command {
	var (
		shop shopFlags
		form checkout.Form
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "place an order for the cart and start the payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := shop.openCart()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctrl := checkout.NewController(cart, shop.client(), cliLogger())
			ctrl.OnTransition = func(from, to checkout.Phase) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", from, to)
			}
			ctx := cmd.Context()
			if err := ctrl.LoadShipping(ctx); err != nil {
				return err
			}
			if form.CouponCode != "" {
				ok, err := ctrl.ApplyCoupon(ctx, form.CouponCode)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(out, "coupon %s is not valid for this cart\n", form.CouponCode)
				}
			}
			if shop.token == "" {
				form.Customer.Guest = true
			}

			q := ctrl.Quote(form.ShippingMethod)
			if q.Warning != "" {
				fmt.Fprintln(out, "warning:", q.Warning)
			}
			fmt.Fprintf(out, "subtotal %s  shipping %s  discount %s  total %s\n",
				q.Subtotal.StringFixed(2), q.Shipping.StringFixed(2), q.Discount.StringFixed(2), q.Total.StringFixed(2))

			conf, err := ctrl.Submit(ctx, form)
			var fe *checkout.FormError
			if errors.As(err, &fe) {
				for field, msg := range fe.Fields {
					fmt.Fprintf(out, "  %s: %s\n", field, msg)
				}
				return errors.New("checkout form is incomplete")
			}
			if err != nil {
				if o := ctrl.PendingOrder(); o != nil {
					fmt.Fprintf(out, "order #%d is saved, pay it later at %s\n", o.ID, checkout.ConfirmationPath(o.ID))
				}
				return errors.New(ctrl.Message())
			}
			fmt.Fprintf(out, "order #%d placed, total %s\n", conf.OrderID, conf.Total.StringFixed(2))
			if conf.Reference != "" {
				fmt.Fprintf(out, "confirm reference %s on your phone\n", conf.Reference)
			}
			fmt.Fprintln(out, conf.Path)
			return nil
		},
	}
	shop.register(cmd)
	f := cmd.Flags()
	f.StringVar(&form.ShippingMethod, "shipping", "STANDARD", "STANDARD, PICKUP, ZONE or EXPRESS")
	f.StringVar(&form.PaymentMethod, "payment", "MPESA", "MPESA, EMOLA or BANK")
	f.StringVar(&form.Customer.Name, "name", "", "customer name")
	f.StringVar(&form.Customer.Email, "email", "", "customer email")
	f.StringVar(&form.Customer.Phone, "phone", "", "customer phone")
	f.StringVar(&form.Address.Name, "recipient", "", "recipient name, defaults to --name")
	f.StringVar(&form.Address.Phone, "address-phone", "", "delivery contact phone, defaults to --phone")
	f.StringVar(&form.Address.Province, "province", "", "")
	f.StringVar(&form.Address.City, "city", "", "")
	f.StringVar(&form.Address.Neighborhood, "neighborhood", "", "")
	f.StringVar(&form.Address.Landmark, "landmark", "", "")
	f.StringVar(&form.CouponCode, "coupon", "", "coupon code")
	f.StringVar(&form.Notes, "notes", "", "")
	f.StringVar(&form.PaymentPhone, "payment-phone", "", "mobile money wallet number, defaults to the contact phone")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if form.Address.Name == "" {
			form.Address.Name = form.Customer.Name
		}
		if form.Address.Phone == "" {
			form.Address.Phone = form.Customer.Phone
		}
	}
	return cmd
}
