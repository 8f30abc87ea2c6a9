package checkout

import (
	"context"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/cart"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

// SalesAPI is the part of the backend a purchase needs. The client must carry
// the buyer's session.
type SalesAPI interface {
	CreateSale(ctx context.Context, req backend.CreateSaleRequest) (*backend.CreateSaleResponse, error)
	CreatePaymentPreference(ctx context.Context, req backend.PreferenceRequest) (string, error)
}

// Buyer is who is paying and where the order goes
type Buyer struct {
	UserID         int64
	Email          string
	DeliveryMethod string
	Address        string
	PostalCode     string
}

// Purchase turns a cart into a sale
type Purchase struct {
	cart      *cart.Store
	handshake *Handshake
	api       SalesAPI
}

func NewPurchase(c *cart.Store, h *Handshake, api SalesAPI) *Purchase {
	return &Purchase{cart: c, handshake: h, api: api}
}

// BuyerFromClaims builds a Buyer from the decoded sub and email
func BuyerFromClaims(userID, email string) (Buyer, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return Buyer{}, errors.Wrapf(errors.ErrUnauthenticated, "user id %q", userID)
	}
	return Buyer{UserID: id, Email: email, DeliveryMethod: backend.DeliveryShipping}, nil
}

func (p *Purchase) createSale(ctx context.Context, buyer Buyer) (*backend.CreateSaleResponse, error) {
	items := p.cart.Items()
	if len(items) == 0 {
		return nil, errors.ErrEmptyCart
	}
	if buyer.DeliveryMethod == "" {
		buyer.DeliveryMethod = backend.DeliveryShipping
	}
	if buyer.DeliveryMethod == backend.DeliveryShipping && strings.TrimSpace(buyer.Address) == "" {
		return nil, errors.ErrMissingAddress
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return p.api.CreateSale(ctx, backend.CreateSaleRequest{
		UserID:          buyer.UserID,
		ProductIDs:      ids,
		DeliveryMethod:  buyer.DeliveryMethod,
		ShippingAddress: strings.TrimSpace(buyer.Address),
		PostalCode:      strings.TrimSpace(buyer.PostalCode),
	})
}

// ByTransfer registers the sale and starts the confirmation handshake. It
// returns the route to send the buyer to.
func (p *Purchase) ByTransfer(ctx context.Context, buyer Buyer) (string, error) {
	sale, err := p.createSale(ctx, buyer)
	if err != nil {
		return "", err
	}
	if err := p.handshake.Begin(sale.Total); err != nil {
		return "", err
	}
	log.Info().Int64("user", buyer.UserID).Float64("total", sale.Total).Msg("transfer purchase registered")
	return RoutePaymentTransfer, nil
}

// Hosted registers the sale and opens a payment preference. On success the
// cart is cleared and the provider URL returned.
func (p *Purchase) Hosted(ctx context.Context, buyer Buyer) (string, error) {
	sale, err := p.createSale(ctx, buyer)
	if err != nil {
		return "", err
	}

	items := p.cart.Items()
	lines := make([]backend.PreferenceItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, backend.PreferenceItem{
			ID:        strconv.FormatInt(it.ID, 10),
			Title:     it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}

	url, err := p.api.CreatePaymentPreference(ctx, backend.PreferenceRequest{
		Email: buyer.Email,
		Cart:  lines,
		Total: sale.Total,
	})
	if err != nil {
		return "", err
	}
	p.cart.Clear()
	log.Info().Int64("user", buyer.UserID).Float64("total", sale.Total).Msg("hosted payment started")
	return url, nil
}
