package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
)

// Sales lists every sale for the back office
func (c *Client) Sales(ctx context.Context) ([]Sale, error) {
	var out []Sale
	if err := c.getJSON(ctx, "/sales", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserOrders lists the sales of one buyer
func (c *Client) UserOrders(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, errors.ErrUnauthenticated
	}
	var out []Order
	if err := c.getJSON(ctx, "/sales/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSale registers a sale; the backend prices it and returns the total
func (c *Client) CreateSale(ctx context.Context, req CreateSaleRequest) (*CreateSaleResponse, error) {
	if len(req.ProductIDs) == 0 {
		return nil, errors.ErrEmptyCart
	}
	if req.DeliveryMethod == DeliveryShipping && req.ShippingAddress == "" {
		return nil, errors.ErrMissingAddress
	}
	if req.DeliveryMethod != DeliveryShipping {
		req.ShippingAddress = ""
		req.PostalCode = ""
	}

	var out CreateSaleResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/sales/secure-create", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EstimateShipping returns the shipping cost, or nil when the backend cannot
// quote the address
func (c *Client) EstimateShipping(ctx context.Context, req ShippingEstimateRequest) (*float64, error) {
	var out struct {
		Cost *float64 `json:"cost"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/shipping/estimate", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Cost, nil
}

// CreatePaymentPreference starts a hosted payment and returns its redirect URL
func (c *Client) CreatePaymentPreference(ctx context.Context, req PreferenceRequest) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/payments/create-preference", nil, req, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.ErrPaymentUnavailable
	}
	return out.URL, nil
}
