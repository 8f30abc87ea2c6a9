package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/cart"
	"github.com/jrsteele09/go-merch-storefront/checkout"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
)

var errUsage = errors.New("invalid arguments, run shopcli without arguments for help")

func (c *client) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "logout":
		c.session.Logout()
		fmt.Fprintln(c.out, "logged out")
		return nil
	case "whoami":
		return c.whoami()
	case "products":
		return c.products(ctx, args)
	case "cart":
		return c.cartCommand(ctx, args)
	case "checkout":
		return c.checkout(ctx, args)
	case "orders":
		return c.orders(ctx)
	default:
		return errUsage
	}
}

// authed is the backend client carrying this profile's session
func (c *client) authed(ctx context.Context) *backend.Client {
	return c.api.As(c.session.As(ctx))
}

func (c *client) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		fs.PrintDefaults()
		return errUsage
	}

	tokens, err := c.api.Login(ctx, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %s", backend.MessageOf(err, err.Error()))
	}
	if err := c.session.Login(tokens.AccessToken, tokens.RefreshToken); err != nil {
		return err
	}
	return c.whoami()
}

func (c *client) whoami() error {
	claims, ok := c.session.Claims()
	if !ok {
		fmt.Fprintln(c.out, "not logged in")
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s> id=%s role=%s\n", claims.DisplayName(), claims.Email, claims.UserID, claims.Role)
	return nil
}

func (c *client) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	category := fs.Int64("category", 0, "only products of this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	products, err := c.api.Products(ctx, *category)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tVARIANTS")
	for _, p := range products {
		variants := ""
		for i, v := range p.Variants {
			if i > 0 {
				variants += "; "
			}
			variants += v.Name + ":"
			for j, o := range v.Options {
				if j > 0 {
					variants += ","
				}
				variants += o.Value
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category.Name, checkout.FormatTotal(p.Price), variants)
	}
	return tw.Flush()
}

func (c *client) cartCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.printCart()
	}

	fs := flag.NewFlagSet("cart "+args[0], flag.ContinueOnError)
	id := fs.Int64("id", 0, "product id")
	qty := fs.Int("qty", 1, "quantity to add")
	variant := fs.String("variant", "", "variant option")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var v *string
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "variant" {
			v = cart.Variant(*variant)
		}
	})

	switch args[0] {
	case "list":
		return c.printCart()
	case "add":
		product, err := c.api.Product(ctx, *id)
		if err != nil {
			return err
		}
		err = c.cart.Add(cart.Item{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Image:    product.MainImage(),
			Quantity: *qty,
			Variant:  v,
		})
		if err != nil {
			return err
		}
	case "remove":
		c.cart.Remove(*id, v)
	case "clear":
		c.cart.Clear()
	default:
		return errUsage
	}
	return c.printCart()
}

func (c *client) printCart() error {
	if c.cart.IsEmpty() {
		fmt.Fprintln(c.out, checkout.EmptyCartNotice)
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVARIANT\tQTY\tSUBTOTAL")
	for _, it := range c.cart.Items() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", it.ID, it.Name, it.VariantLabel(), it.Quantity, checkout.FormatTotal(it.Subtotal()))
	}
	fmt.Fprintf(tw, "\t\t\t%d\t%s\n", c.cart.Count(), checkout.FormatTotal(c.cart.Total()))
	return tw.Flush()
}

func (c *client) checkout(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	fs := flag.NewFlagSet("checkout "+args[0], flag.ContinueOnError)
	pickup := fs.Bool("pickup", false, "pick the order up instead of shipping it")
	address := fs.String("address", "", "shipping address")
	postal := fs.String("postal", "", "postal code")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if redirect, ok := checkout.Guard(checkout.RouteCheckout, c.cart); ok {
		return errors.New(redirect.Notice)
	}
	claims, ok := c.session.Claims()
	if !ok {
		return errors.ErrUnauthenticated
	}
	buyer, err := checkout.BuyerFromClaims(claims.UserID, claims.Email)
	if err != nil {
		return err
	}
	buyer.Address, buyer.PostalCode = *address, *postal
	if *pickup {
		buyer.DeliveryMethod = backend.DeliveryPickup
	}

	purchase := checkout.NewPurchase(c.cart, c.handshake, c.authed(ctx))
	switch args[0] {
	case "transfer":
		if _, err := purchase.ByTransfer(ctx, buyer); err != nil {
			return err
		}
		total, err := c.handshake.Consume(c.cart)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Transfer %s to:\n", checkout.FormatTotal(total))
		for _, f := range c.cfg.GetBankInfo() {
			if f.Value != "" {
				fmt.Fprintf(c.out, "  %-8s %s\n", f.Label, f.Value)
			}
		}
		fmt.Fprintf(c.out, "and send the receipt to %s\n", c.cfg.GetSalesEmail())
	case "hosted":
		url, err := purchase.Hosted(ctx, buyer)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Complete the payment at:", url)
	default:
		return errUsage
	}
	return nil
}

func (c *client) orders(ctx context.Context) error {
	claims, ok := c.session.Claims()
	if !ok {
		return errors.ErrUnauthenticated
	}
	orders, err := c.authed(ctx).UserOrders(ctx, claims.UserID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tITEMS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", o.ID, o.CreatedAt.Format("2006-01-02"), o.Status, len(o.SaleProducts), checkout.FormatTotal(o.Total))
	}
	return tw.Flush()
}
