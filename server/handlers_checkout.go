package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-merch-storefront/backend"
	"github.com/jrsteele09/go-merch-storefront/checkout"
	"github.com/jrsteele09/go-merch-storefront/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	msgMissingAddress     = "Ingresá una dirección de envío."
	msgSaleFailed         = "No se pudo registrar la compra. Intentá de nuevo."
	msgPaymentUnavailable = "No se pudo iniciar el pago. Intentá de nuevo."
	msgEstimateFailed     = "No se pudo calcular el envío."
)

// checkoutForm is the buyer's delivery choice as posted by the checkout page
type checkoutForm struct {
	DeliveryMethod string
	Address        string
	PostalCode     string
}

func readCheckoutForm(r *http.Request) checkoutForm {
	form := checkoutForm{
		DeliveryMethod: r.PostFormValue("deliveryMethod"),
		Address:        strings.TrimSpace(r.PostFormValue("address")),
		PostalCode:     strings.TrimSpace(r.PostFormValue("postalCode")),
	}
	if form.DeliveryMethod != backend.DeliveryPickup {
		form.DeliveryMethod = backend.DeliveryShipping
	}
	return form
}

func (s *Server) renderCheckout(w http.ResponseWriter, r *http.Request, v *visitor, form checkoutForm, estimate *float64) {
	s.renderPage(w, r, v, "Checkout", "checkout.html", map[string]any{
		"Items":    v.cart.Items(),
		"Total":    v.cart.Total(),
		"Form":     form,
		"Estimate": estimate,
		"Shipping": backend.DeliveryShipping,
		"Pickup":   backend.DeliveryPickup,
	})
}

// CheckoutPageHandler renders the order summary and delivery form. The empty
// cart guard has already run.
func (s *Server) CheckoutPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		v.setCartOpen(false)
		s.renderCheckout(w, r, v, checkoutForm{DeliveryMethod: backend.DeliveryShipping}, nil)
	}
}

// EstimateShippingHandler re-renders the checkout page with a shipping quote
func (s *Server) EstimateShippingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		form := readCheckoutForm(r)
		if form.Address == "" {
			v.alert(msgMissingAddress)
			s.renderCheckout(w, r, v, form, nil)
			return
		}

		estimate, err := v.api.EstimateShipping(r.Context(), backend.ShippingEstimateRequest{
			Address:    form.Address,
			PostalCode: form.PostalCode,
		})
		if errors.Is(err, errors.ErrSessionExpired) {
			redirectOnError(w, r, v, err, RouteCheckout, msgEstimateFailed)
			return
		}
		if err != nil {
			log.Err(err).Msg("shipping estimate failed")
			v.alert(backend.MessageOf(err, msgEstimateFailed))
		}
		s.renderCheckout(w, r, v, form, estimate)
	}
}

func (s *Server) buyer(v *visitor, form checkoutForm) (checkout.Buyer, error) {
	claims, ok := v.session.Claims()
	if !ok {
		return checkout.Buyer{}, errors.ErrSessionExpired
	}
	buyer, err := checkout.BuyerFromClaims(claims.UserID, claims.Email)
	if err != nil {
		return checkout.Buyer{}, err
	}
	buyer.DeliveryMethod = form.DeliveryMethod
	buyer.Address = form.Address
	buyer.PostalCode = form.PostalCode
	return buyer, nil
}

// purchaseFailed maps the purchase errors the buyer can fix to notices
func purchaseFailed(w http.ResponseWriter, r *http.Request, v *visitor, err error, fallback string) {
	switch {
	case errors.Is(err, errors.ErrEmptyCart):
		v.notify(checkout.EmptyCartNotice)
		redirectSuccess(w, r, v, RouteStorefront)
	case errors.Is(err, errors.ErrMissingAddress):
		redirectWithError(w, r, v, RouteCheckout, msgMissingAddress)
	default:
		redirectOnError(w, r, v, err, RouteCheckout, fallback)
	}
}

// PayByTransferHandler registers the sale and sends the buyer to the bank
// transfer instructions
func (s *Server) PayByTransferHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		buyer, err := s.buyer(v, readCheckoutForm(r))
		if err != nil {
			purchaseFailed(w, r, v, err, msgSaleFailed)
			return
		}

		route, err := checkout.NewPurchase(v.cart, v.handshake, v.api).ByTransfer(r.Context(), buyer)
		if err != nil {
			purchaseFailed(w, r, v, err, msgSaleFailed)
			return
		}
		redirectSuccess(w, r, v, route)
	}
}

// PayHostedHandler registers the sale and hands the buyer to the payment
// provider
func (s *Server) PayHostedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		buyer, err := s.buyer(v, readCheckoutForm(r))
		if err != nil {
			purchaseFailed(w, r, v, err, msgPaymentUnavailable)
			return
		}

		providerURL, err := checkout.NewPurchase(v.cart, v.handshake, v.api).Hosted(r.Context(), buyer)
		if err != nil {
			purchaseFailed(w, r, v, err, msgPaymentUnavailable)
			return
		}
		redirectSuccess(w, r, v, providerURL)
	}
}

// PaymentTransferHandler shows the bank details for a purchase that was just
// registered. Without one the visitor goes back to the storefront.
func (s *Server) PaymentTransferHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		total, err := v.handshake.Consume(v.cart)
		if err != nil {
			if !errors.Is(err, checkout.ErrNoPendingPurchase) {
				log.Err(err).Str("visitor", v.id).Msg("reading transfer handshake")
			}
			redirectSuccess(w, r, v, RouteStorefront)
			return
		}

		v.setCartOpen(false)
		s.renderPage(w, r, v, "Transferencia bancaria", "payment_transfer.html", map[string]any{
			"Total":      total,
			"BankInfo":   s.config.GetBankInfo(),
			"SalesEmail": s.config.GetSalesEmail(),
		})
	}
}

type paymentResult struct {
	Title   string
	Message string
}

var (
	paymentSuccess = paymentResult{Title: "¡Pago aprobado!", Message: "Gracias por tu compra. Te enviamos el detalle por email."}
	paymentFailure = paymentResult{Title: "El pago no se pudo completar", Message: "No se realizó ningún cargo. Podés intentar nuevamente desde el checkout."}
	paymentPending = paymentResult{Title: "Pago pendiente", Message: "Tu pago está siendo procesado. Te avisaremos cuando se acredite."}
)

// PaymentResultHandler renders the landing page the payment provider returns
// the buyer to
func (s *Server) PaymentResultHandler(result paymentResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := visitorFrom(r)
		s.renderPage(w, r, v, result.Title, "payment_result.html", map[string]any{"Result": result})
	}
}
