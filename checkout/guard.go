// Package checkout holds the rules around leaving the cart: the empty cart
// guard on the checkout route and the handshake with the bank transfer
// confirmation page.
package checkout

import "slices"

const (
	RouteCheckout        = "/checkout"
	RouteStorefront      = "/tienda"
	RoutePaymentTransfer = "/payment-transfer"
	RoutePaymentSuccess  = "/payment-success"
	RoutePaymentFailure  = "/payment-failure"
	RoutePaymentPending  = "/payment-pending"

	EmptyCartNotice = "El carrito está vacío. Redirigiendo..."
)

// allowEmptyCart are the post-payment routes that render with an empty cart
var allowEmptyCart = []string{
	RoutePaymentTransfer,
	RoutePaymentSuccess,
	RoutePaymentFailure,
	RoutePaymentPending,
}

// CartState is the part of a cart the guard looks at
type CartState interface {
	Loaded() bool
	IsEmpty() bool
}

// Redirect tells the caller where to send the client and what to tell them
type Redirect struct {
	To     string
	Notice string
}

// Guard checks a route against the cart. It only redirects once the cart has
// been loaded, and only away from the checkout route.
func Guard(path string, cart CartState) (Redirect, bool) {
	if !cart.Loaded() {
		return Redirect{}, false
	}
	if AllowsEmptyCart(path) {
		return Redirect{}, false
	}
	if path == RouteCheckout && cart.IsEmpty() {
		return Redirect{To: RouteStorefront, Notice: EmptyCartNotice}, true
	}
	return Redirect{}, false
}

func AllowsEmptyCart(path string) bool {
	return slices.Contains(allowEmptyCart, path)
}
