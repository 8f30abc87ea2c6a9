package server

import "github.com/jrsteele09/go-merch-storefront/checkout"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Storefront
	RouteHome          = "/"
	RouteStorefront    = checkout.RouteStorefront
	RouteProduct       = "/tienda/{id}"
	RouteSearch        = "/api/search"
	RouteCartAdd       = "/cart/add"
	RouteCartRemove    = "/cart/remove"
	RouteCartClear     = "/cart/clear"
	RouteCartToggle    = "/cart/toggle"
	RouteCheckout      = checkout.RouteCheckout
	RouteEstimate      = "/checkout/estimate"
	RoutePayByTransfer = "/checkout/transfer"
	RoutePayHosted     = "/checkout/hosted"

	// Post-payment
	RoutePaymentTransfer = checkout.RoutePaymentTransfer
	RoutePaymentSuccess  = checkout.RoutePaymentSuccess
	RoutePaymentFailure  = checkout.RoutePaymentFailure
	RoutePaymentPending  = checkout.RoutePaymentPending

	// Account
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteLogout   = "/logout"
	RouteMyOrders = "/my-orders"

	// Admin Routes
	RouteAdminDashboard         = "/admin"
	RouteAdminProducts          = "/admin/products"
	RouteAdminProductNew        = "/admin/products/new"
	RouteAdminProductEdit       = "/admin/products/{id}/edit"
	RouteAdminProductUpdate     = "/admin/products/{id}"
	RouteAdminProductDelete     = "/admin/products/{id}/delete"
	RouteAdminCategories        = "/admin/categories"
	RouteAdminCategoryDelete    = "/admin/categories/{id}/delete"
	RouteAdminCarousel          = "/admin/carousel"
	RouteAdminCarouselUpload    = "/admin/carousel/upload"
	RouteAdminCarouselOrder     = "/admin/carousel/order"
	RouteAdminCarouselHide      = "/admin/carousel/{id}/deactivate"
	RouteAdminCarouselDelete    = "/admin/carousel/{id}/delete"
	RouteAdminSales             = "/admin/sales"
	RouteAdminCreateAdmin       = "/admin/create-admin"
	RouteAdminIntegrations      = "/admin/integrations"
	RouteAdminIntegrationsZecat = "/admin/integrations/zecat"

	// Static Asset Routes (patterns)
	RouteStaticCSS    = "/css/{file}"
	RouteStaticJS     = "/js/{file}"
	RouteStaticImages = "/images/{file}"
)
